/*
DESCRIPTION
  variables.go contains a list of structs providing a variable Name, a
  type in string format, a function for updating the variable in the
  Config struct from a string, and a validation function checking the
  validity of the corresponding Config field.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/sliceutils"
)

// Config map keys.
const (
	KeyAlg        = "Alg"
	KeyBaud       = "Baud"
	KeyBGCRF      = "BGCRF"
	KeyBGWidth    = "BGWidth"
	KeyCalibrate  = "Calibrate"
	KeyDelayMS    = "DelayMS"
	KeyEDFFile    = "EDFFile"
	KeyFGCRF      = "FGCRF"
	KeyFilter     = "Filter"
	KeyFovea      = "Fovea"
	KeyGazeSource = "GazeSource"
	KeyInput      = "Input"
	KeyLogging    = "logging"
	KeyOutputDir  = "OutputDir"
	KeyQOMax      = "QOMax"
	KeyRecord     = "Record"
	KeySerialPort = "SerialPort"
	KeySuppress   = "Suppress"
	KeyTraceFile  = "TraceFile"
	KeyTrials     = "Trials"
)

// Config map parameter types.
const (
	typeString = "string"
	typeUint   = "uint"
	typeBool   = "bool"
	typeFloat  = "float"
)

// Default variable values.
const (
	defaultGazeSource = GazeMouse
	defaultAlg        = AlgTwoStream
	defaultFovea      = 8
	defaultQOMax      = 35.0
	defaultBGWidth    = 512
	defaultFGCRF      = 24.0
	defaultBGCRF      = 33.0
	defaultFilter     = "smartblur=lr=1.0:ls=-1.0"
	defaultBaud       = 115200
	defaultTrials     = 1
	defaultEDFFile    = "test.edf"
	defaultVerbosity  = logging.Error
	maxQOMax          = 81.0
	maxCRF            = 51.0
)

// The background stream geometry is macroblock aligned.
const macroblockSize = 16

// Variables describes the variables that can be used for fovid
// control. These structs provide the name and type of each variable, a
// function for updating it in a Config, and a function for validating
// its value.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config) error
}{
	{
		Name:   KeyAlg,
		Type:   "enum:" + strings.Join(Algs[:], ","),
		Update: func(c *Config, v string) { c.Alg = v },
		Validate: func(c *Config) error {
			if c.Alg == "" {
				c.LogInvalidField(KeyAlg, defaultAlg)
				c.Alg = defaultAlg
				return nil
			}
			if !sliceutils.ContainsString(Algs[:], c.Alg) {
				return fmt.Errorf("invalid foveation algorithm: %q", c.Alg)
			}
			return nil
		},
	},
	{
		Name:   KeyBaud,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Baud = parseUint(KeyBaud, v, c) },
		Validate: func(c *Config) error {
			if c.Baud == 0 {
				c.LogInvalidField(KeyBaud, defaultBaud)
				c.Baud = defaultBaud
			}
			return nil
		},
	},
	{
		Name:   KeyBGCRF,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.BGCRF = parseFloat(KeyBGCRF, v, c) },
		Validate: func(c *Config) error {
			if c.BGCRF == 0 {
				c.LogInvalidField(KeyBGCRF, defaultBGCRF)
				c.BGCRF = defaultBGCRF
			}
			if c.BGCRF < 0 || c.BGCRF > maxCRF {
				return fmt.Errorf("BGCRF %v not in range [0,%v]", c.BGCRF, maxCRF)
			}
			return nil
		},
	},
	{
		Name:   KeyBGWidth,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.BGWidth = parseUint(KeyBGWidth, v, c) },
		Validate: func(c *Config) error {
			if c.BGWidth == 0 {
				c.LogInvalidField(KeyBGWidth, defaultBGWidth)
				c.BGWidth = defaultBGWidth
			}
			if c.BGWidth%macroblockSize != 0 {
				return fmt.Errorf("BGWidth %d not a multiple of %d", c.BGWidth, macroblockSize)
			}
			// Height keeps a 16:9 ratio and must itself be macroblock
			// aligned.
			c.BGHeight = c.BGWidth * 9 / 16
			if c.BGHeight%macroblockSize != 0 {
				return fmt.Errorf("derived BGHeight %d not a multiple of %d", c.BGHeight, macroblockSize)
			}
			return nil
		},
	},
	{
		Name:   KeyCalibrate,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Calibrate = parseBool(KeyCalibrate, v, c) },
	},
	{
		Name:   KeyDelayMS,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.DelayMS = parseUint(KeyDelayMS, v, c) },
	},
	{
		Name:   KeyEDFFile,
		Type:   typeString,
		Update: func(c *Config, v string) { c.EDFFile = v },
		Validate: func(c *Config) error {
			if c.EDFFile == "" {
				c.EDFFile = defaultEDFFile
			}
			return nil
		},
	},
	{
		Name:   KeyFGCRF,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.FGCRF = parseFloat(KeyFGCRF, v, c) },
		Validate: func(c *Config) error {
			if c.FGCRF == 0 {
				c.LogInvalidField(KeyFGCRF, defaultFGCRF)
				c.FGCRF = defaultFGCRF
			}
			if c.FGCRF < 0 || c.FGCRF > maxCRF {
				return fmt.Errorf("FGCRF %v not in range [0,%v]", c.FGCRF, maxCRF)
			}
			return nil
		},
	},
	{
		Name:   KeyFilter,
		Type:   typeString,
		Update: func(c *Config, v string) { c.Filter = v },
		Validate: func(c *Config) error {
			if c.Filter == "" {
				c.LogInvalidField(KeyFilter, defaultFilter)
				c.Filter = defaultFilter
			}
			return nil
		},
	},
	{
		Name:   KeyFovea,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Fovea = parseUint(KeyFovea, v, c) },
		Validate: func(c *Config) error {
			if c.Fovea == 0 {
				if c.Alg == AlgTwoStream {
					c.LogInvalidField(KeyFovea, defaultFovea)
					c.Fovea = defaultFovea
				}
			}
			return nil
		},
	},
	{
		Name:   KeyGazeSource,
		Type:   "enum:" + strings.Join(GazeSources[:], ","),
		Update: func(c *Config, v string) { c.GazeSource = v },
		Validate: func(c *Config) error {
			if c.GazeSource == "" {
				c.LogInvalidField(KeyGazeSource, defaultGazeSource)
				c.GazeSource = defaultGazeSource
			}
			if !sliceutils.ContainsString(GazeSources[:], c.GazeSource) {
				return fmt.Errorf("invalid gaze source: %q", c.GazeSource)
			}
			if c.GazeSource == GazeTrace && c.TraceFile == "" {
				return fmt.Errorf("gaze source %q requires TraceFile", GazeTrace)
			}
			return nil
		},
	},
	{
		Name:   KeyInput,
		Type:   typeString,
		Update: func(c *Config, v string) { c.Input = v },
	},
	{
		Name:   KeyOutputDir,
		Type:   typeString,
		Update: func(c *Config, v string) { c.OutputDir = v },
		Validate: func(c *Config) error {
			if c.OutputDir == "" {
				c.OutputDir = "output/" + time.Now().Format("2006-01-02-15-04-05")
			}
			return nil
		},
	},
	{
		Name:   KeyQOMax,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.QOMax = parseFloat(KeyQOMax, v, c) },
		Validate: func(c *Config) error {
			if c.QOMax == 0 {
				c.LogInvalidField(KeyQOMax, defaultQOMax)
				c.QOMax = defaultQOMax
			}
			if c.QOMax < 0 || c.QOMax > maxQOMax {
				return fmt.Errorf("QO max offset %v not in valid range [0, %v]", c.QOMax, maxQOMax)
			}
			return nil
		},
	},
	{
		Name:   KeyRecord,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Record = parseBool(KeyRecord, v, c) },
	},
	{
		Name:   KeySerialPort,
		Type:   typeString,
		Update: func(c *Config, v string) { c.SerialPort = v },
	},
	{
		Name:   KeySuppress,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Suppress = parseBool(KeySuppress, v, c) },
	},
	{
		Name:   KeyTraceFile,
		Type:   typeString,
		Update: func(c *Config, v string) { c.TraceFile = v },
	},
	{
		Name:   KeyTrials,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Trials = parseUint(KeyTrials, v, c) },
		Validate: func(c *Config) error {
			if c.Trials == 0 {
				c.Trials = defaultTrials
			}
			return nil
		},
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid logging param", "value", v)
			}
		},
		Validate: func(c *Config) error {
			if c.LogLevel == 0 {
				c.LogLevel = defaultVerbosity
			}
			return nil
		},
	},
}

func parseUint(n, v string, c *Config) uint {
	u, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		c.Logger.Warning("invalid param", "param", n, "value", v)
		return 0
	}
	return uint(u)
}

func parseFloat(n, v string, c *Config) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.Logger.Warning("invalid param", "param", n, "value", v)
		return 0
	}
	return f
}

func parseBool(n, v string, c *Config) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		c.Logger.Warning("invalid param", "param", n, "value", v)
		return false
	}
	return b
}
