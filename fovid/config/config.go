/*
DESCRIPTION
  config.go contains the configuration settings for a fovid session;
  the input video, the gaze source, the foveation parameters of the two
  streams, display options and the latency probe.

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

// Package config contains the configuration settings for fovid.
package config

import (
	"fmt"
	"time"

	"github.com/ausocean/utils/logging"
)

// Gaze source selections.
const (
	GazeMouse   = "mouse"
	GazeEyelink = "eyelink"
	GazeTrace   = "trace"
)

// Foveation algorithm selections. Only AlgTwoStream drives the
// two-stream pipeline; the single-stream QP-offset algorithms are
// accepted for command line compatibility and rejected at pipeline
// setup, since the encoder handle does not expose per-macroblock
// quantizer offsets.
const (
	AlgSquareStep = "square-step"
	AlgGaussian   = "gaussian"
	AlgTwoStream  = "two-stream"
)

// GazeSources and Algs list the valid selections for the respective
// fields.
var (
	GazeSources = [...]string{GazeMouse, GazeEyelink, GazeTrace}
	Algs        = [...]string{AlgSquareStep, AlgGaussian, AlgTwoStream}
)

// Config provides parameters relevant to a fovid instance. A new
// config must be passed to the constructor. Defaults are applied by
// Validate.
type Config struct {
	// Logger holds an implementation of the logging.Logger interface.
	// This must be set for fovid to work correctly.
	Logger logging.Logger

	// LogLevel is the fovid logging verbosity level. Valid values are
	// defined by enums from the logging package: logging.Debug,
	// logging.Info, logging.Warning, logging.Error, logging.Fatal.
	LogLevel int8

	// Input is the path of the Y4M video to encode and display.
	Input string

	// GazeSource selects the origin of gaze samples; one of GazeMouse,
	// GazeEyelink or GazeTrace.
	GazeSource string

	// TraceFile is the ASC trace replayed when GazeSource is GazeTrace.
	TraceFile string

	// Alg is the foveation algorithm; one of Algs.
	Alg string

	// Fovea is the fovea radius in macroblocks. The foreground crop is
	// a square of side Fovea*16 px, clamped to the source height.
	Fovea uint

	// QOMax is the maximum quantizer offset outside the foveal region
	// for the single-stream algorithms. Valid range is [0, 81].
	QOMax float64

	// BGWidth is the width the background stream is rescaled to. Must
	// be a multiple of 16. BGHeight is derived on validation keeping a
	// 16:9 ratio.
	BGWidth  uint
	BGHeight uint

	// FGCRF and BGCRF are the constant-rate-factor settings of the
	// foreground and background encoder handles.
	FGCRF float64
	BGCRF float64

	// Filter is the textual post-decode filter chain applied to the
	// decoded background before display.
	Filter string

	// DelayMS is the artificial pipeline delay applied to gaze
	// delivery, in milliseconds.
	DelayMS uint

	// OutputDir is the directory per-session artifacts are written to:
	// video.h264, foreground.h264, results.csv and a transferred eye
	// trace. Defaults to output/<YYYY-MM-DD-HH-MM-SS>.
	OutputDir string

	// EDFFile is the tracker-side trace file name used for transfer.
	EDFFile string

	// Calibrate runs tracker calibration at session start; Record
	// records the eye trace for transfer at session end.
	Calibrate bool
	Record    bool

	// SerialPort is the latency probe device path; empty disables the
	// probe. Baud is its line rate.
	SerialPort string
	Baud       uint

	// Trials is the number of latency probe trials to run.
	Trials uint

	// Suppress holds logger suppression state.
	Suppress bool
}

// Validate checks the config fields, applying defaults where
// parameters are unset and collecting errors for values that cannot be
// defaulted.
func (c *Config) Validate() error {
	var errs MultiError
	for _, v := range Variables {
		if v.Validate != nil {
			err := v.Validate(c)
			if err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) != 0 {
		return errs
	}
	return nil
}

// Update takes a map of configuration variable names and their
// corresponding values, parses the string values into the correct
// types, and sets the config fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

// LogInvalidField logs the defaulting of a bad or unset field.
func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}

// MultiError collects the errors found during validation of
// configuration parameters.
type MultiError []error

func (me MultiError) Error() string {
	if len(me) == 0 {
		panic("config: invalid use of MultiError")
	}
	return fmt.Sprintf("%v", []error(me))
}

// Delay returns the artificial pipeline delay as a duration.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}
