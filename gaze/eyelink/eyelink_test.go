/*
DESCRIPTION
  eyelink_test.go provides testing of the tracker session lifecycle
  over a fake SDK boundary.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package eyelink

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ausocean/utils/logging"
)

func testLogger() logging.Logger {
	return logging.New(logging.Error, io.Discard, true)
}

// fakeAPI records the calls made through the boundary.
type fakeAPI struct {
	calls       []string
	transferred [][2]string
	transferErr error
}

func (f *fakeAPI) Open(dummy bool) error            { f.calls = append(f.calls, "open"); return nil }
func (f *fakeAPI) Close() error                     { f.calls = append(f.calls, "close"); return nil }
func (f *fakeAPI) Command(cmd string) error         { f.calls = append(f.calls, "command"); return nil }
func (f *fakeAPI) StartRecording(toFile bool) error { f.calls = append(f.calls, "record"); return nil }
func (f *fakeAPI) StopRecording()                   { f.calls = append(f.calls, "stop") }
func (f *fakeAPI) SetOfflineMode()                  { f.calls = append(f.calls, "offline") }
func (f *fakeAPI) EyeAvailable() (Eye, error)       { return EyeLeft, nil }
func (f *fakeAPI) DoTrackerSetup() error            { f.calls = append(f.calls, "calibrate"); return nil }
func (f *fakeAPI) DriftCorrect(x, y int) error      { return nil }
func (f *fakeAPI) NewestFloatSample() (FloatSample, bool) {
	return FloatSample{GazeX: [2]float32{10, 20}, GazeY: [2]float32{30, 40}, PupilArea: [2]float32{1, 1}}, true
}
func (f *fakeAPI) ReceiveDataFile(src, dst string) error {
	f.calls = append(f.calls, "transfer")
	f.transferred = append(f.transferred, [2]string{src, dst})
	return f.transferErr
}

func connectFake(t *testing.T, f *fakeAPI, opts Options) *Session {
	t.Helper()
	old := Driver
	Driver = f
	t.Cleanup(func() { Driver = old })

	s, err := Connect(testLogger(), opts)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return s
}

func TestSessionLifecycle(t *testing.T) {
	f := &fakeAPI{}
	s := connectFake(t, f, Options{Calibrate: true, Record: true, TransferPath: "out/eyetrace.edf"})

	if s.Eye() != EyeLeft {
		t.Errorf("eye = %d, want left", s.Eye())
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Teardown order: stop recording, offline, transfer, close.
	want := []string{"open", "command", "calibrate", "record", "stop", "offline", "transfer", "close"}
	if len(f.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", f.calls, want)
	}
	for i := range want {
		if f.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", f.calls, want)
		}
	}

	if f.transferred[0] != [2]string{DefaultEDFFile, "out/eyetrace.edf"} {
		t.Errorf("transfer = %v", f.transferred[0])
	}

	// Second close is a no-op.
	if err := s.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if f.calls[len(f.calls)-1] != "close" || len(f.calls) != len(want) {
		t.Errorf("second close repeated teardown: %v", f.calls)
	}
}

func TestSessionTransferFailureStillCloses(t *testing.T) {
	f := &fakeAPI{transferErr: errors.New("link error")}
	s := connectFake(t, f, Options{Record: true})

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	last := f.calls[len(f.calls)-1]
	if last != "close" {
		t.Errorf("connection not closed after failed transfer: %v", f.calls)
	}
}

func TestConnectWithoutDriver(t *testing.T) {
	old := Driver
	Driver = nil
	t.Cleanup(func() { Driver = old })

	_, err := Connect(testLogger(), Options{})
	if !errors.Is(err, ErrNoDriver) {
		t.Errorf("error = %v, want ErrNoDriver", err)
	}

	// Dummy mode works without a driver.
	s, err := Connect(testLogger(), Options{Dummy: true})
	if err != nil {
		t.Fatalf("dummy connect: %v", err)
	}
	// The dummy emits one sample per millisecond tick.
	got := false
	for i := 0; i < 50 && !got; i++ {
		_, got = s.NewestSample()
		time.Sleep(time.Millisecond)
	}
	if !got {
		t.Error("dummy tracker produced no samples")
	}
	s.Close()
}
