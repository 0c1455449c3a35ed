/*
DESCRIPTION
  fovid_test.go provides testing of the encoder routine; gaze in,
  encoded pairs out, stream tee to disk, and clean channel shutdown on
  stream end.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package fovid

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ausocean/fovid/encoder"
	"github.com/ausocean/fovid/fovid/config"
	"github.com/ausocean/fovid/gaze"
	"github.com/ausocean/fovid/yuv"
	"github.com/ausocean/utils/logging"
)

// stubHandle is a synchronous FrameEncoder returning one marker unit
// per submitted frame.
type stubHandle struct{ n int }

func (s *stubHandle) Encode(p *yuv.Picture) ([]byte, error) {
	s.n++
	return []byte{0, 0, 0, 1, byte(s.n)}, nil
}
func (s *stubHandle) Drain() ([][]byte, error) { return nil, nil }
func (s *stubHandle) Close() error             { return nil }

func testLogger() logging.Logger {
	return logging.New(logging.Error, io.Discard, true)
}

func testFovid(t *testing.T) (*Fovid, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Config{Logger: testLogger(), OutputDir: dir}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("could not validate config: %v", err)
	}

	dummy, err := encoder.NewDummyWith(testLogger(), &stubHandle{}, 1920, 1080)
	if err != nil {
		t.Fatalf("could not create dummy encoder: %v", err)
	}

	r := &Fovid{
		cfg:    cfg,
		enc:    dummy,
		gazeCh: make(chan gaze.Sample, chanDepth),
		nalCh:  make(chan encoder.Frames, chanDepth),
		stop:   make(chan struct{}),
	}
	r.bgSender, err = newNALSender(testLogger(), filepath.Join(dir, BGStreamFile))
	if err != nil {
		t.Fatalf("could not create sender: %v", err)
	}
	r.fgSender, err = newNALSender(testLogger(), filepath.Join(dir, FGStreamFile))
	if err != nil {
		t.Fatalf("could not create sender: %v", err)
	}
	return r, dir
}

func TestEncodeRoutine(t *testing.T) {
	r, dir := testFovid(t)

	r.wg.Add(1)
	go r.encodeFrom()

	// Black frame, then the triggering white frame, then termination.
	r.gazeCh <- gaze.Sample{PX: 0, PY: 0}
	r.gazeCh <- gaze.Sample{PX: 200, PY: 200}
	r.gazeCh <- gaze.Sample{PX: 200, PY: 200}

	var got []encoder.Frames
	for f := range r.nalCh {
		got = append(got, f)
	}
	r.wg.Wait()

	if len(got) != 2 {
		t.Fatalf("received %d frame pairs, want 2", len(got))
	}
	if got[0].BG == nil || got[1].BG == nil {
		t.Fatal("missing background units")
	}
	if r.encErr != nil {
		t.Errorf("stream end recorded as error: %v", r.encErr)
	}

	// The tee lands both units in video.h264.
	r.bgSender.Close()
	r.fgSender.Close()
	b, err := os.ReadFile(filepath.Join(dir, BGStreamFile))
	if err != nil {
		t.Fatalf("could not read stream file: %v", err)
	}
	if len(b) != 10 {
		t.Errorf("stream file holds %d bytes, want 10", len(b))
	}
}

func TestEncodeRoutineStop(t *testing.T) {
	r, _ := testFovid(t)

	r.wg.Add(1)
	go r.encodeFrom()

	r.gazeCh <- gaze.Sample{PX: 0, PY: 0}
	<-r.nalCh

	close(r.stop)

	// The channel closes promptly without further input.
	select {
	case _, ok := <-r.nalCh:
		if ok {
			// A buffered pair is fine; the close must follow.
			if _, ok := <-r.nalCh; ok {
				t.Fatal("nal channel not closed after stop")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("nal channel not closed within timeout")
	}
	r.wg.Wait()
	r.bgSender.Close()
	r.fgSender.Close()
}

func TestAppendRecord(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{Logger: testLogger(), OutputDir: dir}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("could not validate config: %v", err)
	}

	err := AppendRecord(cfg, Record{Name: "trial-a", LatencyUS: 12345})
	if err != nil {
		t.Fatalf("could not append record: %v", err)
	}
	err = AppendRecord(cfg, Record{Name: "trial-b", LatencyUS: -1})
	if err != nil {
		t.Fatalf("could not append record: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, ResultsFile))
	if err != nil {
		t.Fatalf("could not read results: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 3 {
		t.Fatalf("results has %d lines, want header plus two rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,name,alg") {
		t.Errorf("bad header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "trial-a") || !strings.Contains(lines[1], "12345") {
		t.Errorf("bad first row: %q", lines[1])
	}
}
