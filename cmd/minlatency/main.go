/*
DESCRIPTION
  minlatency measures the minimum possible display latency; no codec in
  the loop, just the triggered gaze wait and a white box drawn directly
  on the canvas for the photodiode.

  Meant to be used with the eyelink-latency hardware; the device is
  triggered over serial and reports microseconds from trigger to
  photodiode threshold.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main provides the minlatency command.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/fovid/client"
	"github.com/ausocean/fovid/encoder"
	"github.com/ausocean/fovid/fovid"
	"github.com/ausocean/fovid/fovid/config"
	"github.com/ausocean/utils/logging"
)

// The white photodiode target side length in display pixels.
const boxDim = 200

// Cache warm toggles before measurement begins.
const (
	warmToggles = 3
	settleDelay = 100 * time.Millisecond
)

// Logging configuration.
const (
	logPath      = "minlatency.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
)

var (
	gazeSource string
	width      uint
	height     uint
	serialPort string
	baud       uint
	trials     uint
)

func main() {
	root := &cobra.Command{
		Use:   "minlatency",
		Short: "measure minimum motion-to-photon latency",
		RunE:  run,

		SilenceUsage: true,
	}

	root.Flags().StringVarP(&gazeSource, "gaze-source", "g", config.GazeEyelink, "source for gaze data (mouse|eyelink|trace)")
	root.Flags().UintVarP(&width, "width", "w", 3840, "width of dummy input")
	root.Flags().UintVarP(&height, "height", "H", 2160, "height of dummy input")
	root.Flags().StringVarP(&serialPort, "serial", "s", "/dev/ttyACM0", "serial device of the ASG")
	root.Flags().UintVar(&baud, "baud", 115200, "baud rate of the ASG")
	root.Flags().UintVarP(&trials, "trials", "t", 1, "how many times to run the experiment")

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

	cfg := config.Config{
		Logger:     log,
		GazeSource: gazeSource,
		Calibrate:  false,
		Record:     false,
	}
	err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("bad config: %w", err)
	}

	c, err := client.New(log, cfg, int(width), int(height))
	if err != nil {
		return fmt.Errorf("could not create client: %w", err)
	}
	defer c.Close()

	src, err := fovid.NewGazeSource(log, cfg, c.Geometry())
	if err != nil {
		return fmt.Errorf("could not create gaze source: %w", err)
	}
	defer src.Close()

	probe, err := fovid.NewProbe(log, serialPort, int(baud))
	if err != nil {
		return fmt.Errorf("could not open probe: %w", err)
	}
	defer probe.Close()

	src.Sample()

	// Toggle a couple of times to get the draw paths in cache.
	for i := 0; i < warmToggles; i++ {
		c.Clear()
		time.Sleep(settleDelay)
		c.DisplayWhite(boxDim)
		time.Sleep(settleDelay)
	}
	c.Clear()
	time.Sleep(settleDelay)

	var measurements []float64

	fmt.Println("e2e_us")
	remaining := trials
	for remaining > 0 {
		err = probe.Trigger()
		if err != nil {
			return fmt.Errorf("could not trigger probe: %w", err)
		}

		wait := time.Now()
		src.TriggeredSample(encoder.DiffThresh)
		log.Debug("gaze update time", "elapsed", time.Since(wait).String())

		draw := time.Now()
		c.DisplayWhite(boxDim)
		log.Debug("draw time", "elapsed", time.Since(draw).String())

		us, err := probe.Read()
		if err != nil {
			log.Error("no response from probe; was the screen asleep?", "error", err.Error())
			return err
		}
		fmt.Println(us)
		measurements = append(measurements, float64(us))
		remaining--

		time.Sleep(settleDelay)
		c.Clear()
		time.Sleep(settleDelay)
		src.Sample()
	}

	if len(measurements) > 1 {
		mean, std := stat.MeanStdDev(measurements, nil)
		log.Info("latency summary", "trials", len(measurements), "mean_us", int(mean), "stddev_us", int(std))
	}
	return nil
}
