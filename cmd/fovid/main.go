/*
DESCRIPTION
  fovid is a tool for foveated encoding of an input Y4M video and
  decoding/displaying the two resulting streams, driven by a gaze
  source.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main provides the fovid command.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/fovid/fovid"
	"github.com/ausocean/fovid/fovid/config"
	"github.com/ausocean/utils/logging"
)

// Current software version.
const version = "v1.0.0"

// Logging configuration.
const (
	logPath      = "fovid.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

var (
	gazeSource string
	alg        string
	fovea      uint
	qoMax      float64
	bgWidth    uint
	filterDesc string
	delayMS    uint
	output     string
	trace      string
	serialPort string
	baud       uint
	skipCal    bool
	record     bool
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:     "fovid [flags] VIDEO",
		Short:   "foveated encoding and display of a Y4M video, driven by gaze",
		Args:    cobra.ExactArgs(1),
		Version: version,
		RunE:    run,

		SilenceUsage: true,
	}

	root.Flags().StringVarP(&gazeSource, "gaze-source", "g", config.GazeMouse, "source for gaze data (mouse|eyelink|trace)")
	root.Flags().StringVarP(&alg, "alg", "a", config.AlgTwoStream, "foveation algorithm (square-step|gaussian|two-stream)")
	root.Flags().UintVarP(&fovea, "fovea", "f", 8, "fovea radius in macroblocks")
	root.Flags().Float64VarP(&qoMax, "qo-max", "q", 35.0, "maximum quantizer offset outside the fovea [0,81]")
	root.Flags().UintVarP(&bgWidth, "bg-width", "b", 512, "background stream width; multiple of 16, height derived 16:9")
	root.Flags().StringVar(&filterDesc, "filter", "smartblur=lr=1.0:ls=-1.0", "filter chain applied to the decoded background")
	root.Flags().UintVarP(&delayMS, "delay", "d", 0, "artificial pipeline delay in ms")
	root.Flags().StringVarP(&output, "output", "o", "", "output directory (default output/<timestamp>)")
	root.Flags().StringVarP(&trace, "trace", "t", "", "ASC trace file for the trace gaze source")
	root.Flags().StringVarP(&serialPort, "serial", "s", "", "serial device of the latency probe; empty disables")
	root.Flags().UintVar(&baud, "baud", 115200, "baud rate of the latency probe")
	root.Flags().BoolVar(&skipCal, "skip-cal", false, "skip tracker calibration")
	root.Flags().BoolVar(&record, "record", false, "record the eye trace for transfer at session end")
	root.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	err := root.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := newLogger(debug)
	log.Info("starting fovid", "version", version)

	cfg := config.Config{
		Logger:     log,
		Input:      args[0],
		GazeSource: gazeSource,
		Alg:        alg,
		Fovea:      fovea,
		QOMax:      qoMax,
		BGWidth:    bgWidth,
		Filter:     filterDesc,
		DelayMS:    delayMS,
		OutputDir:  output,
		TraceFile:  trace,
		SerialPort: serialPort,
		Baud:       baud,
		Calibrate:  !skipCal,
		Record:     record,
	}
	if debug {
		cfg.LogLevel = logging.Debug
	}

	r, err := fovid.New(cfg)
	if err != nil {
		return fmt.Errorf("could not initialise fovid: %w", err)
	}
	defer r.Close()

	// A SIGINT shuts the pipeline down cleanly; recording stops and
	// the tracker connection closes on the deferred Close.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	interrupted := false
	go func() {
		<-sig
		log.Info("interrupt; stopping")
		interrupted = true
		r.Stop()
	}()

	err = r.Start()
	if err != nil {
		return fmt.Errorf("could not start fovid: %w", err)
	}

	err = r.Run()
	if err != nil {
		return fmt.Errorf("session ended with error: %w", err)
	}

	stats := r.Client().Stats()
	if interrupted && stats.Frames == 0 {
		// Nothing was displayed; the session never really started, so
		// the partial output is not worth keeping.
		r.Close()
		rmErr := os.RemoveAll(r.Config().OutputDir)
		if rmErr != nil {
			log.Warning("could not remove partial output", "error", rmErr.Error())
		}
		return nil
	}

	log.Info("session complete",
		"frames", strconv.FormatUint(stats.Frames, 10),
		"bytes", strconv.FormatUint(stats.Bytes, 10))
	return nil
}

// newLogger builds the session logger writing to the rotated log file
// and stderr.
func newLogger(debug bool) logging.Logger {
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	verbosity := int8(logVerbosity)
	if debug {
		verbosity = logging.Debug
	}
	return logging.New(verbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)
}
