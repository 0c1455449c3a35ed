/*
DESCRIPTION
  latency measures the end-to-end motion-to-photon latency of the full
  two-stream pipeline using the dummy encoder and the serial-attached
  artificial saccade generator.

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

// Package main provides the latency command.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/fovid/encoder"
	"github.com/ausocean/fovid/fovid"
	"github.com/ausocean/fovid/fovid/config"
	"github.com/ausocean/utils/logging"
)

// Logging configuration.
const (
	logPath      = "latency.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
)

var (
	gazeSource string
	width      uint
	height     uint
	fovea      uint
	bgWidth    uint
	filterDesc string
	serialPort string
	baud       uint
	trials     uint
	twoStream  bool
	output     string
)

func main() {
	root := &cobra.Command{
		Use:   "latency",
		Short: "measure pipeline motion-to-photon latency with the dummy encoders",
		RunE:  run,

		SilenceUsage: true,
	}

	root.Flags().StringVarP(&gazeSource, "gaze-source", "g", config.GazeEyelink, "source for gaze data (mouse|eyelink|trace)")
	root.Flags().UintVarP(&width, "width", "w", 3840, "width of dummy input")
	root.Flags().UintVarP(&height, "height", "H", 2160, "height of dummy input")
	root.Flags().UintVarP(&fovea, "fovea", "f", 8, "fovea radius in macroblocks")
	root.Flags().UintVarP(&bgWidth, "bg-width", "b", 512, "background stream width; multiple of 16")
	root.Flags().StringVar(&filterDesc, "filter", "smartblur=lr=1.0:ls=-1.0", "filter chain applied to the decoded background")
	root.Flags().StringVarP(&serialPort, "serial", "s", "/dev/ttyACM0", "serial device of the ASG")
	root.Flags().UintVar(&baud, "baud", 115200, "baud rate of the ASG")
	root.Flags().UintVarP(&trials, "trials", "t", 1, "how many times to run the experiment")
	root.Flags().BoolVar(&twoStream, "two-stream", true, "use the two-stream dummy rather than single-stream")
	root.Flags().StringVarP(&output, "output", "o", "", "output directory (default output/<timestamp>)")

	err := root.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logging.Info, io.MultiWriter(fileLog, os.Stderr), true)

	var measurements []float64

	fmt.Println("e2e_us")
	for i := uint(0); i < trials; i++ {
		us, err := runTrial(log)
		if err != nil {
			return fmt.Errorf("trial %d failed: %w", i+1, err)
		}
		if us < 0 {
			log.Warning("trial produced no measurement; skipping", "trial", i+1)
			continue
		}
		fmt.Println(us)
		measurements = append(measurements, float64(us))
	}

	if len(measurements) > 1 {
		mean, std := stat.MeanStdDev(measurements, nil)
		log.Info("latency summary", "trials", len(measurements), "mean_us", int(mean), "stddev_us", int(std))
	}
	return nil
}

// runTrial runs one full dummy pipeline until the linger terminates
// it, returning the probe measurement in microseconds.
func runTrial(log logging.Logger) (int64, error) {
	cfg := config.Config{
		Logger:     log,
		GazeSource: gazeSource,
		Fovea:      fovea,
		BGWidth:    bgWidth,
		Filter:     filterDesc,
		SerialPort: serialPort,
		Baud:       baud,
		OutputDir:  output,
		Calibrate:  false,
		Record:     false,
	}
	err := cfg.Validate()
	if err != nil {
		return 0, fmt.Errorf("bad config: %w", err)
	}

	var enc encoder.Encoder
	if twoStream {
		enc, err = encoder.NewDummyTwoStream(log, int(width), int(height), int(fovea), int(cfg.BGWidth), int(cfg.BGHeight))
	} else {
		enc, err = encoder.NewDummy(log, int(width), int(height))
	}
	if err != nil {
		return 0, fmt.Errorf("could not create dummy encoder: %w", err)
	}

	r, err := fovid.New(cfg, fovid.WithEncoder(enc))
	if err != nil {
		return 0, fmt.Errorf("could not initialise pipeline: %w", err)
	}
	defer r.Close()

	err = r.Start()
	if err != nil {
		return 0, fmt.Errorf("could not start pipeline: %w", err)
	}
	err = r.Run()
	if err != nil {
		return 0, fmt.Errorf("pipeline error: %w", err)
	}

	return r.LastLatency(), nil
}
