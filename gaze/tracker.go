/*
DESCRIPTION
  tracker.go provides the hardware gaze backend over the eyelink
  session boundary; the newest float sample is taken from the link,
  samples with missing pupil data are discarded, and the eye selection
  follows the device's reported availability.

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

package gaze

import (
	"time"

	"github.com/ausocean/fovid/gaze/eyelink"
	"github.com/ausocean/utils/logging"
)

// Tracker is a Source backed by a hardware eye tracker session.
type Tracker struct {
	*sampler
	ses *eyelink.Session
}

// NewTracker returns a Source reading from the given open tracker
// session. The session remains owned by the caller; closing it is not
// the Tracker's concern until Close is called.
func NewTracker(l logging.Logger, geom Geometry, delay time.Duration, ses *eyelink.Session) (*Tracker, error) {
	t := &Tracker{ses: ses}
	t.sampler = newSampler(l, geom, delay, t.pollTracker)
	l.Debug("tracker gaze source ready", "eye", int(ses.Eye()), "delay", delay.String())
	return t, nil
}

func (t *Tracker) pollTracker() (int, int, bool) {
	fs, ok := t.ses.NewestSample()
	if !ok {
		return 0, 0, false
	}

	// Index the sample fields by the available eye; binocular
	// recordings read the right eye.
	i := 0
	if t.ses.Eye() != eyelink.EyeLeft {
		i = 1
	}

	// Discard samples with no valid pupil.
	if fs.PupilArea[i] <= 0 || fs.GazeX[i] == eyelink.MissingData || fs.GazeY[i] == eyelink.MissingData {
		return 0, 0, false
	}

	return int(fs.GazeX[i]), int(fs.GazeY[i]), true
}

// Close releases the tracker session.
func (t *Tracker) Close() error { return t.ses.Close() }
