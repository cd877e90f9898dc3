// Command ziti-sim runs an advection scene headless and reports how many
// particles survive.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"

	"github.com/ziticore/ziti"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "TOML config file, defaults when empty")
	backend := flag.String("backend", "", "Override backend: cpu or gpu")
	frames := flag.Int("frames", -1, "Override number of frames")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := ziti.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = ziti.LoadConfig(*configPath); err != nil {
			ziti.NewDefaultLogger("ziti-sim", false).Errorf("%v", err)
			os.Exit(1)
		}
	}
	if *backend != "" {
		cfg.Backend = ziti.BackendKind(*backend)
	}
	if *frames >= 0 {
		cfg.Frames = *frames
	}
	cfg.Debug = cfg.Debug || *debug

	log := ziti.NewDefaultLogger("ziti-sim", cfg.Debug)

	b, err := ziti.NewBackend(cfg.Backend, log)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
	defer b.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := ziti.Run(ctx, cfg, b, log); err != nil {
		log.Errorf("%v", err)
		b.Release()
		os.Exit(1)
	}
}
