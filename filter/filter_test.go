/*
DESCRIPTION
  filter_test.go provides testing for filter chain parsing.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package filter

import (
	"testing"

	"github.com/ausocean/fovid/yuv"
)

func TestParse(t *testing.T) {
	tests := []struct {
		desc    string
		n       int
		wantErr bool
	}{
		{desc: "", n: 1},
		{desc: "none", n: 1},
		{desc: "noop", n: 1},
		{desc: "smartblur=lr=1.0:ls=-1.0", n: 1},
		{desc: "unsharp", n: 1},
		{desc: "sharpen=amount=0.5", n: 1},
		{desc: "smartblur=lr=1.0,unsharp", n: 2},
		{desc: "smartblur=lr=9.0", wantErr: true},
		{desc: "smartblur=lr", wantErr: true},
		{desc: "smartblur=ls=abc", wantErr: true},
		{desc: "vignette", wantErr: true},
	}

	for _, tt := range tests {
		c, err := Parse(tt.desc)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q) expected error", tt.desc)
				c.Close()
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tt.desc, err)
			continue
		}
		if len(c) != tt.n {
			t.Errorf("Parse(%q) chain length = %d, want %d", tt.desc, len(c), tt.n)
		}
		c.Close()
	}
}

func TestNoOpPreserves(t *testing.T) {
	p, err := yuv.NewPicture(16, 16)
	if err != nil {
		t.Fatalf("could not create picture: %v", err)
	}
	p.Fill(100, 110, 120)

	c, err := Parse("noop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if err := c.Apply(p); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if p.Plane(0)[0] != 100 || p.Plane(1)[0] != 110 || p.Plane(2)[0] != 120 {
		t.Error("noop modified the picture")
	}
}
