// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"verb/cmd"
	applog "verb/internal/log"
	"verb/pkg/build"
)

// main runs in three phases:
//
// 1. Startup (cold path): build info, runtime settings, configuration.
// 2. Processing (hot path): the PortAudio callback runs the effect while the
//    panel, control server and recorder run on their own goroutines.
// 3. Shutdown (cold path): an interrupt or quitting the panel stops the
//    recorder, the stream and PortAudio.
func main() {
	if err := build.Initialize(); err != nil {
		applog.Debugf("build info: %v", err)
	}

	// One thread for the audio callback, one for UI and I/O.
	runtime.GOMAXPROCS(2)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		stop()
		applog.Fatal(err)
	}
}
