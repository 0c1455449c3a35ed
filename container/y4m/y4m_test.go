/*
DESCRIPTION
  y4m_test.go provides testing for Y4M header parsing and frame reads.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package y4m

import (
	"bytes"
	"io"
	"math"
	"testing"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		hdr     string
		width   int
		height  int
		fps     float64
		wantErr bool
	}{
		{hdr: "YUV4MPEG2 W3840 H2160 F24:1 Ip A0:0 C420jpeg\n", width: 3840, height: 2160, fps: 24.0},
		{hdr: "YUV4MPEG2 W1920 H1080 F24000:1001 Ip A1:1 C420mpeg2\n", width: 1920, height: 1080, fps: 24000.0 / 1001.0},
		{hdr: "YUV4MPEG2 W1280 H720 F30:1\n", width: 1280, height: 720, fps: 30.0},
		{hdr: "YUV4MPEG2 W1920 H1080\n", wantErr: true},
		{hdr: "MPEG2 W1920 H1080 F24:1\n", wantErr: true},
		{hdr: "YUV4MPEG2 W1920 H1080 F0:1\n", wantErr: true},
	}

	for _, tt := range tests {
		w, h, fps, err := ParseHeader(tt.hdr)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseHeader(%q) expected error", tt.hdr)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHeader(%q) unexpected error: %v", tt.hdr, err)
			continue
		}
		if w != tt.width || h != tt.height || math.Abs(fps-tt.fps) > 1e-9 {
			t.Errorf("ParseHeader(%q) = (%d, %d, %v), want (%d, %d, %v)", tt.hdr, w, h, fps, tt.width, tt.height, tt.fps)
		}
	}
}

// stream builds a two-frame 4x4 Y4M stream with distinguishable plane
// content per frame.
func stream() []byte {
	var b bytes.Buffer
	b.WriteString("YUV4MPEG2 W4 H4 F25:1 Ip A0:0 C420jpeg\n")
	for f := byte(1); f <= 2; f++ {
		b.WriteString("FRAME\n")
		b.Write(bytes.Repeat([]byte{f}, 16))      // Y
		b.Write(bytes.Repeat([]byte{f + 10}, 4))  // Cb
		b.Write(bytes.Repeat([]byte{f + 20}, 4))  // Cr
	}
	return b.Bytes()
}

func TestReadFrame(t *testing.T) {
	r, err := NewReader(bytes.NewReader(stream()))
	if err != nil {
		t.Fatalf("could not create reader: %v", err)
	}
	if r.Width() != 4 || r.Height() != 4 || r.FPS() != 25.0 {
		t.Fatalf("bad metadata: %dx%d @ %v", r.Width(), r.Height(), r.FPS())
	}

	p, err := r.NewPicture()
	if err != nil {
		t.Fatalf("could not create picture: %v", err)
	}

	for f := byte(1); f <= 2; f++ {
		if err := r.ReadFrame(p); err != nil {
			t.Fatalf("frame %d: %v", f, err)
		}
		if p.Plane(0)[0] != f || p.Plane(1)[0] != f+10 || p.Plane(2)[0] != f+20 {
			t.Fatalf("frame %d: got planes (%d, %d, %d)", f, p.Plane(0)[0], p.Plane(1)[0], p.Plane(2)[0])
		}
	}

	if err := r.ReadFrame(p); err != io.EOF {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
	if r.FrameCount() != 2 {
		t.Errorf("frame count = %d, want 2", r.FrameCount())
	}
}

func TestReadFrameTruncated(t *testing.T) {
	s := stream()
	r, err := NewReader(bytes.NewReader(s[:len(s)-4]))
	if err != nil {
		t.Fatalf("could not create reader: %v", err)
	}
	p, _ := r.NewPicture()
	if err := r.ReadFrame(p); err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	if err := r.ReadFrame(p); err != io.ErrUnexpectedEOF {
		t.Errorf("expected io.ErrUnexpectedEOF for truncated frame, got %v", err)
	}
}
