/*
DESCRIPTION
  ffdec_test.go provides testing for decoder argument generation and
  construction checks.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ffdec

import (
	"io"
	"testing"

	"github.com/ausocean/utils/logging"
)

func TestArgsLowDelay(t *testing.T) {
	args := Args()
	want := map[string]bool{"low_delay": false, "nobuffer": false, "pipe:0": false, "pipe:1": false, "yuv420p": false}
	for _, a := range args {
		if _, ok := want[a]; ok {
			want[a] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("args missing %q", k)
		}
	}
}

func TestNewRejectsBadGeometry(t *testing.T) {
	l := logging.New(logging.Error, io.Discard, true)
	for _, d := range [][2]int{{0, 288}, {512, 0}, {511, 288}, {512, 287}} {
		if _, err := New(l, d[0], d[1]); err == nil {
			t.Errorf("geometry %dx%d expected error", d[0], d[1])
		}
	}
	if _, err := New(l, 512, 288); err != nil {
		t.Errorf("geometry 512x288 unexpected error: %v", err)
	}
}
