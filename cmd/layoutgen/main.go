// Command layoutgen writes the WGSL declarations of the host/device shared
// structs, derived from package layout.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/ziticore/ziti/schema"
)

func main() {
	output := flag.String("o", "", "output file, stdout when empty")
	flag.Parse()

	src, err := schema.Generate()
	if err != nil {
		log.Fatalf("layoutgen: %v", err)
	}

	if *output == "" {
		if _, err := os.Stdout.WriteString(src); err != nil {
			log.Fatalf("layoutgen: %v", err)
		}
		return
	}
	if err := os.WriteFile(*output, []byte(src), 0o644); err != nil {
		log.Fatalf("layoutgen: %v", err)
	}
	log.Printf("layoutgen: wrote %s", *output)
}
