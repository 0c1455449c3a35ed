/*
DESCRIPTION
  stats.go provides the running per-trial statistics of the
  compositing client; frames displayed, bytes delivered, aggregated
  gaze travel and the gaze bounding box. These feed the per-trial CSV
  records.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package client

import "math"

// Stats holds the running totals of one client session.
type Stats struct {
	Frames     uint64
	Bytes      uint64
	GazeTravel float64
	MinX, MinY int
	MaxX, MaxY int

	haveGaze       bool
	lastGX, lastGY int
}

func newStats() Stats {
	return Stats{MinX: math.MaxInt32, MinY: math.MaxInt32, MaxX: -1, MaxY: -1}
}

// recordGaze folds a placed gaze position (display px) into the travel
// distance and bounding box.
func (s *Stats) recordGaze(x, y int) {
	if s.haveGaze {
		dx := float64(x - s.lastGX)
		dy := float64(y - s.lastGY)
		s.GazeTravel += math.Sqrt(dx*dx + dy*dy)
	}
	s.haveGaze = true
	s.lastGX, s.lastGY = x, y

	if x < s.MinX {
		s.MinX = x
	}
	if y < s.MinY {
		s.MinY = y
	}
	if x > s.MaxX {
		s.MaxX = x
	}
	if y > s.MaxY {
		s.MaxY = y
	}
}
