/*
Headless path tracing renderer: builds the acceleration structures for a
scene, traces a configured number of sample batches through a ray tracing
pipeline and writes the accumulated image as Radiance HDR.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vortex/engine/assets"
	"github.com/spaghettifunk/vortex/engine/config"
	"github.com/spaghettifunk/vortex/engine/core"
	"github.com/spaghettifunk/vortex/engine/platform"
	"github.com/spaghettifunk/vortex/engine/renderer"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the render configuration")
	debug := flag.Bool("debug", false, "enable Vulkan validation")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal(err.Error())
	}

	p, err := platform.New()
	if err != nil {
		core.LogFatal(err.Error())
	}
	if err := p.Startup(); err != nil {
		core.LogFatal(err.Error())
	}
	defer p.Shutdown()

	assetManager, err := assets.NewAssetManager(cfg.SearchPaths)
	if err != nil {
		core.LogFatal(err.Error())
	}
	defer assetManager.Shutdown()

	pathTracer, err := renderer.NewPathTracer(cfg, assetManager, *debug)
	if err != nil {
		core.LogFatal(err.Error())
	}
	defer pathTracer.Shutdown()

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		pathTracer.Shutdown()
		os.Exit(1)
	}()

	if err := pathTracer.Render(); err != nil {
		core.LogError(err.Error())
		os.Exit(1)
	}
}
