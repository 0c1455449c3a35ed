/*
DESCRIPTION
  study_test.go provides testing of the user-study state machine and
  its TOML configuration loading.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package study

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/ausocean/utils/logging"
)

func testLogger() logging.Logger {
	return logging.New(logging.Error, io.Discard, true)
}

// fakeRunner records the actions driven by the machine.
type fakeRunner struct {
	played    []uint
	baselines int
	calibrates int
	recorded  []Trial
}

func (f *fakeRunner) PlayVideo(delayMS uint, q QualityPreset) error {
	f.played = append(f.played, delayMS)
	return nil
}
func (f *fakeRunner) PlayBaseline() error { f.baselines++; return nil }
func (f *fakeRunner) Calibrate() error    { f.calibrates++; return nil }
func (f *fakeRunner) Record(t Trial, quality int, q QualityPreset) error {
	f.recorded = append(f.recorded, t)
	return nil
}

func preset() QualityPreset {
	return QualityPreset{FGSize: 8, FGCRF: 24, BGSize: 512, BGCRF: 33}
}

func testPlan(attempts, delays int) Plan {
	p := Plan{Attempts: attempts}
	for i := 0; i < delays; i++ {
		d := Delay{DelayMS: uint(i * 10)}
		d.Q0, d.Q1, d.Q2, d.Q3, d.Q4 = preset(), preset(), preset(), preset(), preset()
		d.Q5, d.Q6, d.Q7, d.Q8, d.Q9 = preset(), preset(), preset(), preset(), preset()
		p.Delays = append(p.Delays, d)
	}
	return p
}

func TestStudyRunThrough(t *testing.T) {
	r := &fakeRunner{}
	s := New(testLogger(), testPlan(2, 3), r, rand.New(rand.NewSource(1)))

	if s.Remaining() != 6 {
		t.Fatalf("trials = %d, want 6", s.Remaining())
	}

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.State() != StatePause || r.calibrates != 1 {
		t.Fatalf("start did not calibrate and pause: state %d, calibrates %d", s.State(), r.calibrates)
	}

	// Enter before any playback is ignored.
	done, err := s.Handle(EventEnter, 0)
	if err != nil || done {
		t.Fatalf("early accept: done=%v err=%v", done, err)
	}
	if len(r.recorded) != 0 {
		t.Fatal("early accept recorded a trial")
	}

	// Play and accept every trial.
	for i := 0; i < 6; i++ {
		done, err = s.Handle(EventDigit, 3)
		if err != nil || done {
			t.Fatalf("trial %d play: done=%v err=%v", i, done, err)
		}
		done, err = s.Handle(EventEnter, 0)
		if err != nil {
			t.Fatalf("trial %d accept: %v", i, err)
		}
	}
	if !done {
		t.Fatal("machine did not quit after the last accept")
	}
	if s.State() != StateQuit || len(r.recorded) != 6 || len(r.played) != 6 {
		t.Fatalf("end state %d, recorded %d, played %d", s.State(), len(r.recorded), len(r.played))
	}
}

func TestStudyQuit(t *testing.T) {
	r := &fakeRunner{}
	s := New(testLogger(), testPlan(1, 2), r, rand.New(rand.NewSource(1)))
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	done, err := s.Handle(EventQuit, 0)
	if err != nil || !done {
		t.Fatalf("quit: done=%v err=%v", done, err)
	}
	if s.State() != StateQuit {
		t.Fatalf("state = %d, want quit", s.State())
	}
}

func TestStudyShuffleDeterministic(t *testing.T) {
	a := New(testLogger(), testPlan(3, 4), &fakeRunner{}, rand.New(rand.NewSource(7)))
	b := New(testLogger(), testPlan(3, 4), &fakeRunner{}, rand.New(rand.NewSource(7)))
	for a.Remaining() > 0 {
		if a.Current().Attempt != b.Current().Attempt || a.Current().Delay.DelayMS != b.Current().Delay.DelayMS {
			t.Fatal("same seed produced different orders")
		}
		a.trials = a.trials[1:]
		b.trials = b.trials[1:]
	}
}

func TestEventFromKey(t *testing.T) {
	tests := []struct {
		r     rune
		ev    Event
		digit int
	}{
		{'0', EventDigit, 0},
		{'7', EventDigit, 7},
		{'\n', EventEnter, 0},
		{'p', EventPause, 0},
		{'c', EventCalibrate, 0},
		{'b', EventBaseline, 0},
		{rune(0x1b), EventQuit, 0},
		{'x', EventNone, 0},
	}
	for _, tt := range tests {
		ev, d := EventFromKey(tt.r)
		if ev != tt.ev || d != tt.digit {
			t.Errorf("EventFromKey(%q) = (%d, %d), want (%d, %d)", tt.r, ev, d, tt.ev, tt.digit)
		}
	}
}

func TestLoad(t *testing.T) {
	var delays string
	q := `{ fg_size = 8, fg_crf = 24, bg_size = 512, bg_crf = 33 }`
	presets := ""
	for i := 0; i < PresetCount; i++ {
		presets += fmt.Sprintf("q%d = %s\n", i, q)
	}
	delays = fmt.Sprintf("[[shibuya.delays]]\ndelay = 19\n%s", presets)

	doc := "[shibuya]\nattempts = 2\n" + delays

	path := filepath.Join(t.TempDir(), "study.toml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("could not write config: %v", err)
	}

	plans, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p, ok := plans["shibuya"]
	if !ok {
		t.Fatal("missing video key")
	}
	if p.Attempts != 2 || len(p.Delays) != 1 || p.Delays[0].DelayMS != 19 {
		t.Fatalf("bad plan: %+v", p)
	}
	if p.Delays[0].Q9.BGSize != 512 {
		t.Errorf("preset not parsed: %+v", p.Delays[0].Q9)
	}
}

func TestLoadRejectsBadPreset(t *testing.T) {
	doc := `[clip]
attempts = 1
[[clip.delays]]
delay = 0
q0 = { fg_size = 8, fg_crf = 24, bg_size = 510, bg_crf = 33 }
`
	path := filepath.Join(t.TempDir(), "study.toml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("could not write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("bad bg_size expected error")
	}
}
