/*
DESCRIPTION
  api.go defines the boundary onto the native eye-tracker SDK; a small
  interface covering the calls the pipeline needs, a registration point
  for an SDK-linked driver, and a deterministic dummy implementation
  used when no hardware is present.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package eyelink

import (
	"errors"
	"math"
	"time"
)

// Eye identifies which eye(s) the tracker reports.
type Eye int

// Eye values, matching the tracker's "eye available" report.
const (
	EyeLeft Eye = iota
	EyeRight
	EyeBinocular
)

// MissingData is the value the tracker substitutes for gaze fields of
// samples with no valid pupil.
const MissingData = -32768

// FloatSample is the newest float sample from the tracker link. Gaze
// and pupil fields are indexed 0 for the left eye and 1 for the right.
type FloatSample struct {
	Time      uint32
	GazeX     [2]float32
	GazeY     [2]float32
	PupilArea [2]float32
}

// API is the safe boundary onto the tracker SDK. Implementations wrap
// the native link; the package dummy implementation synthesizes
// samples.
type API interface {
	// Open opens the tracker connection, in simulation mode if dummy
	// is set.
	Open(dummy bool) error

	// Close closes the tracker connection.
	Close() error

	// Command sends a tracker configuration command.
	Command(cmd string) error

	// StartRecording starts sample recording, to file if toFile.
	StartRecording(toFile bool) error

	// StopRecording stops sample recording.
	StopRecording()

	// SetOfflineMode places the tracker in idle mode.
	SetOfflineMode()

	// NewestFloatSample returns the newest link sample, and whether a
	// new sample was available since the previous call.
	NewestFloatSample() (FloatSample, bool)

	// EyeAvailable reports which eye(s) the tracker is recording.
	EyeAvailable() (Eye, error)

	// DoTrackerSetup runs the interactive calibration routine.
	DoTrackerSetup() error

	// DriftCorrect performs a single-point drift correction at the
	// given display position.
	DriftCorrect(x, y int) error

	// ReceiveDataFile transfers a recorded trace file from the tracker
	// host to the given local path.
	ReceiveDataFile(src, dst string) error
}

// Driver is the SDK-linked API implementation. A build that links the
// native SDK registers itself here; when nil, only dummy sessions can
// be opened.
var Driver API

// ErrNoDriver is returned when a hardware session is requested and no
// SDK driver has been registered.
var ErrNoDriver = errors.New("no eyelink SDK driver registered")

// dummyAPI synthesizes a slow circular gaze path. It stands in for the
// hardware during development and latency bench work.
type dummyAPI struct {
	start     time.Time
	recording bool
	lastTime  uint32
}

func newDummyAPI() *dummyAPI { return &dummyAPI{start: time.Now()} }

func (d *dummyAPI) Open(dummy bool) error                  { return nil }
func (d *dummyAPI) Close() error                           { return nil }
func (d *dummyAPI) Command(cmd string) error               { return nil }
func (d *dummyAPI) StartRecording(toFile bool) error       { d.recording = true; return nil }
func (d *dummyAPI) StopRecording()                         { d.recording = false }
func (d *dummyAPI) SetOfflineMode()                        {}
func (d *dummyAPI) EyeAvailable() (Eye, error)             { return EyeRight, nil }
func (d *dummyAPI) DoTrackerSetup() error                  { return nil }
func (d *dummyAPI) DriftCorrect(x, y int) error            { return nil }
func (d *dummyAPI) ReceiveDataFile(src, dst string) error  { return nil }

func (d *dummyAPI) NewestFloatSample() (FloatSample, bool) {
	el := time.Since(d.start)
	ms := uint32(el.Milliseconds())
	if ms == d.lastTime {
		return FloatSample{}, false
	}
	d.lastTime = ms

	// One revolution every 4 seconds around a 1080p-ish center.
	theta := el.Seconds() * math.Pi / 2
	s := FloatSample{Time: ms}
	for i := 0; i < 2; i++ {
		s.GazeX[i] = float32(960 + 200*math.Cos(theta))
		s.GazeY[i] = float32(540 + 200*math.Sin(theta))
		s.PupilArea[i] = 1000
	}
	return s, true
}
