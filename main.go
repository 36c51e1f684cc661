/*
 * periph - Main process.
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

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	getopt "github.com/pborman/getopt/v2"
	config "github.com/rcornwell/periph/config/configparser"
	"github.com/rcornwell/periph/emu/channel"
	"github.com/rcornwell/periph/emu/event"
	"github.com/rcornwell/periph/emu/him"
	"github.com/rcornwell/periph/emu/tape"
	logger "github.com/rcornwell/periph/util/logger"
	"go.uber.org/zap"

	"github.com/rcornwell/periph/config/debugconfig"
)

// eventTick is how often the background event pump advances the cooperative
// scheduler that tape CCW completion and rewind callbacks run on.
// There is no CPU cycle clock in this configuration, so wall-clock time
// substitutes for the cycle counter emu/event otherwise runs against.
const eventTick = 100 * time.Microsecond

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "periph.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if optLogFile != nil && *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, nil))
	slog.SetDefault(Logger)

	Logger.Info("periph started")
	if optConfig == nil || *optConfig == "" {
		Logger.Error("please specify a configuration file")
		os.Exit(1)
	}

	if _, err := os.Stat(*optConfig); os.IsNotExist(err) {
		Logger.Error("configuration file not found", "file", *optConfig)
		os.Exit(1)
	}

	zapLog, err := zap.NewProduction()
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	defer zapLog.Sync() //nolint:errcheck

	sys := channel.NewSystem()
	debugconfig.SetSystem(sys)
	tape.SetSystem(sys)
	him.SetSystem(sys)
	him.SetLogger(zapLog)

	if err := config.LoadConfigFile(*optConfig); err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	done := make(chan struct{})
	go runEventPump(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	Logger.Info("shutting down")
	close(done)
	sys.Shutdown()
}

// runEventPump advances the cooperative event scheduler at a fixed wall
// clock rate until done is closed.
func runEventPump(done chan struct{}) {
	ticker := time.NewTicker(eventTick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			event.Advance(1)
		}
	}
}
