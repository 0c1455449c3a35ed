/*
DESCRIPTION
  trace.go provides the trace-file gaze backend; samples parsed from an
  ASC export are replayed at their recorded cadence.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package gaze

import (
	"errors"
	"time"

	"github.com/ausocean/fovid/gaze/asc"
	"github.com/ausocean/utils/logging"
)

// Trace is a Source replaying a recorded ASC eye trace.
type Trace struct {
	*sampler
	samples []asc.Sample
	start   time.Time
	idx     int
}

// NewTrace returns a Source replaying the ASC trace at path. Replay
// begins on construction.
func NewTrace(l logging.Logger, geom Geometry, delay time.Duration, path string) (*Trace, error) {
	samples, err := asc.ParseFile(path)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.New("trace contains no samples")
	}

	t := &Trace{samples: samples, start: time.Now()}
	t.sampler = newSampler(l, geom, delay, t.pollTrace)
	l.Info("trace gaze source ready", "path", path, "samples", len(samples))
	return t, nil
}

func (t *Trace) pollTrace() (int, int, bool) {
	el := time.Since(t.start)
	base := t.samples[0].Time

	advanced := false
	for t.idx+1 < len(t.samples) &&
		time.Duration(t.samples[t.idx+1].Time-base)*time.Millisecond <= el {
		t.idx++
		advanced = true
	}
	if !advanced && t.idx != 0 {
		// Between recorded samples; the current one was already
		// delivered.
		return 0, 0, false
	}

	s := t.samples[t.idx]
	return int(s.X), int(s.Y), true
}
