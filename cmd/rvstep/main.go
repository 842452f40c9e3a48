/*
 * rvcore - Main program
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Command rvstep is a minimal demo driver for the core: it loads a
// machine description and an optional ROM image, then either free-runs
// the system or drops into an interactive step console. It is a thin
// shell over the public System/Hart API and does not reach into core
// internals; a full monitor/command language is out of scope.
//
// Grounded on the teacher's root main.go: getopt flags, a slog logger
// via util/logger, and a signal-driven shutdown loop.
package main

import (
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/rvcore/config/machine"
	"github.com/rcornwell/rvcore/emu/bits"
	"github.com/rcornwell/rvcore/emu/decode"
	"github.com/rcornwell/rvcore/emu/system"
	logger "github.com/rcornwell/rvcore/util/logger"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Machine description file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optCycles := getopt.IntLong("cycles", 'n', 0, "Ticks to run (0 = until halt or interactive quit)")
	optInteractive := getopt.BoolLong("interactive", 'i', "Drop into the step console")
	optDebug := getopt.BoolLong("debug", 'd', "Log at debug level")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile io.Writer
	if *optLogFile != "" {
		f, err := os.Create(*optLogFile)
		if err != nil {
			slog.Error("cannot create log file", "error", err)
			os.Exit(1)
		}
		logFile = f
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	if *optDebug {
		level.Set(slog.LevelDebug)
	}
	debug := optDebug
	programLogger := slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: level}, debug))
	slog.SetDefault(programLogger)

	cfg := machine.Default()
	if *optConfig != "" {
		loaded, err := machine.Load(*optConfig)
		if err != nil {
			slog.Error("loading machine description", "file", *optConfig, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	xlen := bits.XLen32
	if cfg.XLen == 64 {
		xlen = bits.XLen64
	}

	s := system.New(cfg.Harts, xlen, 256, decode.Config{
		TreatUndefinedAsNop: cfg.TreatUndefinedAsNop,
		MachineSpecific:     cfg.MachineSpecific,
	})
	for _, r := range cfg.RAM {
		s.Mem.AddRAM(r.Base, r.Size)
	}
	for _, r := range cfg.ROM {
		data, err := os.ReadFile(r.Path)
		if err != nil {
			slog.Error("loading ROM image", "file", r.Path, "error", err)
			os.Exit(1)
		}
		s.Mem.AddROM(r.Base, data)
	}
	s.Init()
	slog.Info("rvstep started", "harts", cfg.Harts, "xlen", cfg.XLen)

	if *optInteractive {
		runConsole(s)
		s.Close()
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	stop := make(chan struct{})
	go func() {
		<-sigChan
		slog.Info("received shutdown signal")
		close(stop)
	}()

	stopFn := func() bool {
		select {
		case <-stop:
			return true
		default:
			return false
		}
	}

	ticks := s.Run(*optCycles, stopFn)
	slog.Info("rvstep stopped", "ticks", ticks)
	s.Close()
}
