/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-gfx/engine"
	"github.com/spaghettifunk/anima-gfx/engine/config"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/shader"
	"github.com/spaghettifunk/anima-gfx/testbed"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration")
	validate := flag.Bool("validate-shaders", false, "compile every shader in the shader directory and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogError("cannot load %s: %s", *configPath, err)
		os.Exit(1)
	}

	if *validate {
		built, err := shader.ValidateDir(shader.NagaCompiler{}, cfg.Shaders.Dir)
		if err != nil {
			core.LogError("%s", err)
			os.Exit(1)
		}
		fmt.Printf("%d entry points compiled under %s\n", built, cfg.Shaders.Dir)
		return
	}

	// signal context to capture system calls; the loop stops on the next frame
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	e, err := engine.New(testbed.NewTestGame(cfg))
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		if err := e.Shutdown(); err != nil {
			core.LogError("%s", err)
		}
	}()

	if err := e.Initialize(); err != nil {
		core.LogError("initialization failed: %s", err)
		return
	}
	if err := e.Run(ctx); err != nil {
		core.LogError("%s", err)
	}
}
