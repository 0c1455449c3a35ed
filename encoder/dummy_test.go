/*
DESCRIPTION
  dummy_test.go provides testing of the dummy encoder trigger
  semantics.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package encoder

import (
	"io"
	"testing"

	"github.com/ausocean/fovid/gaze"
	"github.com/ausocean/fovid/yuv"
	"github.com/ausocean/utils/logging"
)

func testLogger() logging.Logger {
	return logging.New(logging.Error, io.Discard, true)
}

// stubEnc is a synchronous FrameEncoder recording the corner luma of
// every submitted frame; the returned unit carries that luma so tests
// can distinguish black from white submissions.
type stubEnc struct {
	corners []byte
}

func (s *stubEnc) Encode(p *yuv.Picture) ([]byte, error) {
	corner := p.Plane(0)[(p.Height()-1)*p.Width()]
	s.corners = append(s.corners, corner)
	return []byte{0x00, 0x00, 0x00, 0x01, corner}, nil
}

func (s *stubEnc) Drain() ([][]byte, error) { return nil, nil }
func (s *stubEnc) Close() error             { return nil }

func at(px, py int) gaze.Sample {
	return gaze.Sample{PX: px, PY: py, MX: px / 16, MY: py / 16}
}

func TestDummyTrigger(t *testing.T) {
	enc := &stubEnc{}
	d, err := NewDummyWith(testLogger(), enc, 1920, 1080)
	if err != nil {
		t.Fatalf("could not create dummy: %v", err)
	}

	// First gaze establishes the reference; output stays black.
	frames, err := d.EncodeFrame(at(0, 0))
	if err != nil {
		t.Fatalf("encode 1: %v", err)
	}
	if frames.BG == nil || frames.BG[4] != yuv.Black {
		t.Fatalf("encode 1 not black: %v", frames.BG)
	}
	if d.Triggered() {
		t.Fatal("triggered before threshold crossed")
	}

	// Exceeding the threshold switches to white; exactly one white
	// encode with LingerFrames = 1.
	frames, err = d.EncodeFrame(at(200, 200))
	if err != nil {
		t.Fatalf("encode 2: %v", err)
	}
	if frames.BG == nil || frames.BG[4] != yuv.White {
		t.Fatalf("encode 2 not white: %v", frames.BG)
	}
	if !d.Triggered() {
		t.Fatal("not triggered after threshold crossed")
	}

	// The next encode terminates the stream.
	_, err = d.EncodeFrame(at(200, 200))
	if err != ErrFinished {
		t.Fatalf("encode 3 error = %v, want ErrFinished", err)
	}
}

func TestDummyBelowThresholdStaysBlack(t *testing.T) {
	enc := &stubEnc{}
	d, err := NewDummyWith(testLogger(), enc, 1920, 1080)
	if err != nil {
		t.Fatalf("could not create dummy: %v", err)
	}

	d.EncodeFrame(at(100, 100))
	// A delta of exactly DiffThresh must not trigger; strictly greater
	// is required.
	frames, err := d.EncodeFrame(at(100+DiffThresh, 100))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if frames.BG[4] != yuv.Black || d.Triggered() {
		t.Error("triggered at exactly the threshold")
	}

	// Small jitter on either axis also stays black.
	frames, err = d.EncodeFrame(at(110, 140))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if frames.BG[4] != yuv.Black {
		t.Error("triggered below the threshold")
	}
}

func TestWhitePatchGeometry(t *testing.T) {
	p, err := yuv.NewPicture(1920, 1080)
	if err != nil {
		t.Fatalf("could not create picture: %v", err)
	}
	p.Fill(yuv.Black, yuv.ChromaNeutral, yuv.ChromaNeutral)
	box := whitePatch(p)

	if box != 1920/19 {
		t.Fatalf("box = %d, want %d", box, 1920/19)
	}
	luma := p.Plane(0)
	// Inside the bottom-left box.
	if luma[(1080-1)*1920] != yuv.White || luma[(1080-box)*1920+box-1] != yuv.White {
		t.Error("white patch not drawn in bottom-left corner")
	}
	// Outside the box.
	if luma[0] != yuv.Black || luma[(1080-box-1)*1920] != yuv.Black || luma[(1080-1)*1920+box] != yuv.Black {
		t.Error("white patch leaked outside its box")
	}
}
