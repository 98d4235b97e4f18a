/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/triframe/engine"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/testbed"
)

func main() {
	configPath := flag.String("config", "", "path of the TOML configuration, defaults when empty")
	watch := flag.Bool("watch", false, "reload the configuration when the file changes")
	frames := flag.Uint64("frames", 0, "stop after this many frames, 0 runs until interrupted")
	flag.Parse()

	tb := testbed.NewTestGame(&engine.ApplicationConfig{
		Name:        "Triframe Testbed",
		ConfigPath:  *configPath,
		WatchConfig: *watch && *configPath != "",
		MaxFrames:   *frames,
	})

	engine, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal("boot failed: %s", err.Error())
	}

	if err := engine.Initialize(); err != nil {
		if serr := engine.Shutdown(); serr != nil {
			core.LogError("shutdown: %s", serr.Error())
		}
		core.LogFatal("initialize failed: %s", err.Error())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// stop the loop on a signal, the shutdown happens on this goroutine
	go func() {
		<-sigCh
		engine.Quit()
	}()

	runErr := engine.Run()
	if err := engine.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err.Error())
	}
	if runErr != nil {
		core.LogFatal("run failed: %s", runErr.Error())
	}
}
