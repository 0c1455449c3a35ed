/*
DESCRIPTION
  stats_test.go provides testing for the client session statistics.

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

import (
	"math"
	"testing"
)

func TestStatsGazeTravel(t *testing.T) {
	s := newStats()

	s.recordGaze(100, 100)
	if s.GazeTravel != 0 {
		t.Fatalf("travel after first sample = %v, want 0", s.GazeTravel)
	}

	s.recordGaze(103, 104) // 3-4-5 triangle.
	if math.Abs(s.GazeTravel-5) > 1e-9 {
		t.Fatalf("travel = %v, want 5", s.GazeTravel)
	}

	s.recordGaze(100, 100)
	if math.Abs(s.GazeTravel-10) > 1e-9 {
		t.Fatalf("travel = %v, want 10", s.GazeTravel)
	}

	if s.MinX != 100 || s.MinY != 100 || s.MaxX != 103 || s.MaxY != 104 {
		t.Errorf("bounding box = (%d,%d)-(%d,%d), want (100,100)-(103,104)", s.MinX, s.MinY, s.MaxX, s.MaxY)
	}
}
