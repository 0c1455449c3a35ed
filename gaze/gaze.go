/*
DESCRIPTION
  gaze.go provides the gaze sample type, projection of display
  coordinates into source-video coordinates, and the common sampler
  machinery shared by the mouse, tracker and trace backends; a bounded
  ring of recent samples supporting artificial delay replay, and the
  triggered wait used by the latency probe.

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

// Package gaze provides timestamped gaze samples in display and
// source-video coordinates from a selection of backends.
package gaze

import (
	"time"

	"github.com/ausocean/utils/logging"
)

// MacroblockSize is the addressable unit of gaze quantization.
const MacroblockSize = 16

// RingLen is the capacity of the sampler's delay replay ring.
const RingLen = 256

// pollInterval is the backend poll spacing inside TriggeredSample.
const pollInterval = 250 * time.Microsecond

// Sample is an immutable snapshot of where the viewer is looking.
type Sample struct {
	Time    time.Time // Monotonic instant of capture.
	Seqno   uint64    // Strictly increasing delivery counter.
	DWidth  int       // Display width in px.
	DHeight int       // Display height in px.
	DX      int       // X position in display px, clipped to the video rect.
	DY      int       // Y position in display px, clipped to the video rect.
	PX      int       // X position in source-video px.
	PY      int       // Y position in source-video px.
	MX      int       // X position in macroblocks.
	MY      int       // Y position in macroblocks.
}

// Source produces gaze samples. Sample never blocks; TriggeredSample
// blocks until gaze moves beyond a threshold.
type Source interface {
	// Sample returns the freshest deliverable sample, or a copy of the
	// most recently delivered one when no new reading is available.
	// Delivered seqnos are strictly increasing and times are
	// non-decreasing.
	Sample() Sample

	// TriggeredSample blocks, polling the backend, until the newly
	// observed position differs from the previously observed one by
	// more than thresholdPx on either display axis, and returns the
	// stable pre-saccade sample.
	TriggeredSample(thresholdPx int) Sample

	// Close releases the backend.
	Close() error
}

// Geometry maps display coordinates onto source-video coordinates via
// the video-in-display rectangle; the largest aspect-preserving
// rectangle centered on the display.
type Geometry struct {
	DispW, DispH int
	VidW, VidH   int

	rx, ry, rw, rh int
}

// NewGeometry returns the Geometry for a video of (vidW, vidH) shown
// on a display of (dispW, dispH).
func NewGeometry(dispW, dispH, vidW, vidH int) Geometry {
	g := Geometry{DispW: dispW, DispH: dispH, VidW: vidW, VidH: vidH}
	if dispW*vidH >= dispH*vidW {
		// Height limited; pillarbox.
		g.rh = dispH
		g.rw = vidW * dispH / vidH
	} else {
		// Width limited; letterbox.
		g.rw = dispW
		g.rh = vidH * dispW / vidW
	}
	g.rx = (dispW - g.rw) / 2
	g.ry = (dispH - g.rh) / 2
	return g
}

// VideoRect returns the video rectangle within the display.
func (g Geometry) VideoRect() (x, y, w, h int) { return g.rx, g.ry, g.rw, g.rh }

// SampleAt builds a Sample for the display position (dx, dy) at time
// t. The display position is clipped to the video rectangle and
// projected into source-video pixels and macroblocks. Seqno is
// assigned at delivery by the sampler.
func (g Geometry) SampleAt(t time.Time, dx, dy int) Sample {
	dx = clipRange(dx, g.rx, g.rx+g.rw-1)
	dy = clipRange(dy, g.ry, g.ry+g.rh-1)

	px := (dx - g.rx) * g.VidW / g.rw
	py := (dy - g.ry) * g.VidH / g.rh
	px = clipRange(px, 0, g.VidW-1)
	py = clipRange(py, 0, g.VidH-1)

	return Sample{
		Time:    t,
		DWidth:  g.DispW,
		DHeight: g.DispH,
		DX:      dx,
		DY:      dy,
		PX:      px,
		PY:      py,
		MX:      px / MacroblockSize,
		MY:      py / MacroblockSize,
	}
}

// ToDisplay projects a source-video position back into display pixels.
func (g Geometry) ToDisplay(px, py int) (dx, dy int) {
	return g.rx + px*g.rw/g.VidW, g.ry + py*g.rh/g.VidH
}

func clipRange(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// pollFunc reports the backend's newest raw display position, and
// whether a new reading was available.
type pollFunc func() (dx, dy int, ok bool)

// sampler implements the Source contract over a backend poll function.
// It owns the bounded ring used for delay replay. A sampler is driven
// from a single goroutine; samples are value-copied out of it.
type sampler struct {
	geom  Geometry
	delay time.Duration
	log   logging.Logger
	poll  pollFunc

	ring []Sample
	seq  uint64
	last Sample
}

func newSampler(l logging.Logger, geom Geometry, delay time.Duration, poll pollFunc) *sampler {
	s := &sampler{
		geom:  geom,
		delay: delay,
		log:   l,
		poll:  poll,
		ring:  make([]Sample, 0, RingLen),
	}
	// Seed at the video center so the first delivery is well defined
	// before the backend has produced anything.
	cx, cy := geom.ToDisplay(geom.VidW/2, geom.VidH/2)
	s.last = geom.SampleAt(time.Now(), cx, cy)
	return s
}

// Sample implements Source.
func (s *sampler) Sample() Sample {
	now := time.Now()

	if dx, dy, ok := s.poll(); ok {
		if len(s.ring) == cap(s.ring) {
			copy(s.ring, s.ring[1:])
			s.ring = s.ring[:len(s.ring)-1]
		}
		s.ring = append(s.ring, s.geom.SampleAt(now, dx, dy))
	}

	// Release the newest buffered sample that is old enough; older
	// qualifying samples are superseded.
	released := -1
	for i, b := range s.ring {
		if now.Sub(b.Time) >= s.delay {
			released = i
			continue
		}
		break
	}
	if released >= 0 {
		s.last = s.ring[released]
		s.ring = append(s.ring[:0], s.ring[released+1:]...)
	}

	s.seq++
	s.last.Seqno = s.seq
	return s.last
}

// TriggeredSample implements Source.
func (s *sampler) TriggeredSample(thresholdPx int) Sample {
	prev := s.last
	for {
		dx, dy, ok := s.poll()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		cur := s.geom.SampleAt(time.Now(), dx, dy)
		if abs(cur.DX-prev.DX) > thresholdPx || abs(cur.DY-prev.DY) > thresholdPx {
			s.seq++
			prev.Seqno = s.seq
			s.last = prev
			return prev
		}
		prev = cur
	}
}

// Close implements Source. Backends embedding sampler override this
// where they own resources.
func (s *sampler) Close() error { return nil }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
