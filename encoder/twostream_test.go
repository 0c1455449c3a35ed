/*
DESCRIPTION
  twostream_test.go provides testing of the two-stream encoder's paced
  source reading and its background/foreground re-encode asymmetry.

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
	"bytes"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/ausocean/fovid/container/y4m"
)

// testVideo builds an in-memory Y4M stream of the given geometry,
// frame count and rate.
func testVideo(t *testing.T, w, h, frames, fps int) *y4m.Reader {
	t.Helper()
	var b bytes.Buffer
	fmt.Fprintf(&b, "YUV4MPEG2 W%d H%d F%d:1 Ip A0:0 C420jpeg\n", w, h, fps)
	for i := 0; i < frames; i++ {
		b.WriteString("FRAME\n")
		b.Write(bytes.Repeat([]byte{byte(i + 1)}, w*h))
		b.Write(bytes.Repeat([]byte{128}, w*h/2))
	}
	r, err := y4m.NewReader(&b)
	if err != nil {
		t.Fatalf("could not create test video: %v", err)
	}
	return r
}

func newTestTwoStream(t *testing.T, video *y4m.Reader, fg, bg *stubEnc) *TwoStream {
	t.Helper()
	s, err := NewTwoStreamWith(testLogger(), video, 16, fg, bg, 32, 16)
	if err != nil {
		t.Fatalf("could not create two-stream encoder: %v", err)
	}
	return s
}

func TestTwoStreamPacedReading(t *testing.T) {
	// 50 fps over a 100 ms run; the source may advance at most
	// ceil(0.1*50)+1 = 6 times however often encode is called.
	video := testVideo(t, 64, 48, 1000, 50)
	s := newTestTwoStream(t, video, &stubEnc{}, &stubEnc{})

	t0 := time.Now()
	deadline := t0.Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		_, err := s.EncodeFrame(at(32, 24))
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	elapsed := time.Since(t0)

	// For an N-second run at fps the source advances at most
	// ceil(N*fps)+1 times, however often encode is called.
	bound := int(elapsed.Seconds()*50) + 2
	if n := video.FrameCount(); n < 1 || n > bound {
		t.Errorf("source advanced %d times over %v, want 1..%d", n, elapsed, bound)
	}
}

func TestTwoStreamAsymmetry(t *testing.T) {
	video := testVideo(t, 64, 48, 3, 1) // 1 fps; only the first read is due.
	fg, bg := &stubEnc{}, &stubEnc{}
	s := newTestTwoStream(t, video, fg, bg)

	// First encode advances the source and encodes both streams.
	frames, err := s.EncodeFrame(at(32, 24))
	if err != nil {
		t.Fatalf("encode 1: %v", err)
	}
	if frames.BG == nil || frames.FG == nil {
		t.Fatalf("first encode missing streams: bg=%v fg=%v", frames.BG != nil, frames.FG != nil)
	}

	// Quiet gaze without a due source frame encodes nothing.
	frames, err = s.EncodeFrame(at(33, 24))
	if err != nil {
		t.Fatalf("encode 2: %v", err)
	}
	if !frames.Empty() {
		t.Errorf("quiet encode produced output: %+v", frames)
	}

	// A meaningful gaze move re-encodes the foreground only.
	moved := at(60, 40)
	moved.Seqno = 7
	frames, err = s.EncodeFrame(moved)
	if err != nil {
		t.Fatalf("encode 3: %v", err)
	}
	if frames.BG != nil {
		t.Error("background re-encoded without source advance")
	}
	if frames.FG == nil {
		t.Fatal("foreground not re-encoded on gaze change")
	}
	if frames.FG.Gaze.Seqno != 7 {
		t.Errorf("foreground paired with wrong gaze: seqno %d", frames.FG.Gaze.Seqno)
	}

	if len(bg.corners) != 1 {
		t.Errorf("background encoded %d times, want 1", len(bg.corners))
	}
	if len(fg.corners) != 2 {
		t.Errorf("foreground encoded %d times, want 2", len(fg.corners))
	}
}

func TestTwoStreamEOF(t *testing.T) {
	video := testVideo(t, 64, 48, 1, 1000)
	s := newTestTwoStream(t, video, &stubEnc{}, &stubEnc{})

	_, err := s.EncodeFrame(at(32, 24))
	if err != nil {
		t.Fatalf("encode 1: %v", err)
	}

	// The single-frame stream ends cleanly once the next read is due.
	time.Sleep(5 * time.Millisecond)
	for i := 0; i < 100; i++ {
		_, err = s.EncodeFrame(at(32, 24))
		if err != nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if err != io.EOF {
		t.Fatalf("stream end error = %v, want io.EOF", err)
	}
}
