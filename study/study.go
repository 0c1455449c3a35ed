/*
DESCRIPTION
  study.go provides the keyboard-driven user-study state machine; a
  shuffled sequence of (attempt, delay) trials, each played at a digit
  selected quality preset and accepted with Enter, persisting one
  record per accepted trial.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package study provides the user-study state machine and its TOML
// trial configuration.
package study

import (
	"fmt"
	"math/rand"

	"github.com/ausocean/utils/logging"
)

// To indicate package when logging.
const pkg = "study: "

// State is a user-study machine state.
type State int

// The set of possible user study states.
const (
	StateInit State = iota
	StateCalibrate
	StatePause
	StateVideo
	StateBaseline
	StateAccept
	StateQuit
)

// Event is a state machine input derived from a keystroke.
type Event int

// Events that can cause state transitions.
const (
	EventNone Event = iota
	EventDigit
	EventEnter
	EventPause
	EventCalibrate
	EventBaseline
	EventQuit
)

// EventFromKey maps a pressed key to an event; digits carry their
// value.
func EventFromKey(r rune) (Event, int) {
	switch {
	case r >= '0' && r <= '9':
		return EventDigit, int(r - '0')
	case r == '\n' || r == '\r':
		return EventEnter, 0
	case r == 'p':
		return EventPause, 0
	case r == 'c':
		return EventCalibrate, 0
	case r == 'b':
		return EventBaseline, 0
	case r == 0x1b || r == 0x03:
		return EventQuit, 0
	}
	return EventNone, 0
}

// Trial is one shuffled (attempt, delay) pair.
type Trial struct {
	Attempt int
	Delay   Delay
}

// Runner carries out the side effects of the state machine; playing a
// video trial, playing the uncompressed baseline, recalibrating the
// tracker, and persisting an accepted trial.
type Runner interface {
	// PlayVideo plays the study video with the given artificial delay
	// and quality preset, returning when playback ends.
	PlayVideo(delayMS uint, q QualityPreset) error

	// PlayBaseline plays the uncompressed baseline via the external
	// player.
	PlayBaseline() error

	// Calibrate reruns tracker calibration.
	Calibrate() error

	// Record persists an accepted trial.
	Record(t Trial, quality int, q QualityPreset) error
}

// Study drives a keyboard-controlled sequence of trials.
type Study struct {
	log    logging.Logger
	runner Runner

	trials []Trial
	state  State

	// quality is the last played preset index; -1 before any playback
	// of the current trial.
	quality int
}

// New returns a Study over the given plan. The (attempt, delay) pairs
// are shuffled uniformly at random using rng.
func New(l logging.Logger, plan Plan, runner Runner, rng *rand.Rand) *Study {
	var trials []Trial
	for a := 1; a <= plan.Attempts; a++ {
		for _, d := range plan.Delays {
			trials = append(trials, Trial{Attempt: a, Delay: d})
		}
	}
	rng.Shuffle(len(trials), func(i, j int) {
		trials[i], trials[j] = trials[j], trials[i]
	})

	return &Study{
		log:     l,
		runner:  runner,
		trials:  trials,
		state:   StateInit,
		quality: -1,
	}
}

// State returns the current machine state.
func (s *Study) State() State { return s.state }

// Remaining returns the number of unaccepted trials.
func (s *Study) Remaining() int { return len(s.trials) }

// Current returns the current trial; valid while Remaining is
// non-zero.
func (s *Study) Current() Trial { return s.trials[0] }

// Start runs the Init and Calibrate states, leaving the machine
// paused and ready for key events.
func (s *Study) Start() error {
	if s.state != StateInit {
		return fmt.Errorf("start from state %d", s.state)
	}
	if len(s.trials) == 0 {
		s.state = StateQuit
		return nil
	}

	s.state = StateCalibrate
	err := s.runner.Calibrate()
	if err != nil {
		s.state = StateQuit
		return fmt.Errorf("could not calibrate: %w", err)
	}
	s.state = StatePause
	s.log.Info(pkg+"study started", "trials", len(s.trials))
	return nil
}

// Handle feeds one event into the machine, returning true once the
// machine has reached Quit.
func (s *Study) Handle(ev Event, digit int) (bool, error) {
	if s.state == StateQuit {
		return true, nil
	}

	switch ev {
	case EventQuit:
		s.log.Info(pkg + "quit requested")
		s.state = StateQuit
		return true, nil

	case EventDigit:
		if len(s.trials) == 0 {
			s.state = StateQuit
			return true, nil
		}
		t := s.trials[0]
		s.state = StateVideo
		s.log.Info(pkg+"playing trial video", "attempt", t.Attempt, "delay", t.Delay.DelayMS, "quality", digit)
		err := s.runner.PlayVideo(t.Delay.DelayMS, t.Delay.Preset(digit))
		s.state = StatePause
		if err != nil {
			return false, fmt.Errorf("could not play trial video: %w", err)
		}
		s.quality = digit

	case EventEnter:
		if s.quality < 0 {
			s.log.Warning(pkg + "accept with no played quality; ignoring")
			return false, nil
		}
		t := s.trials[0]
		s.state = StateAccept
		s.log.Info(pkg+"accepting trial", "attempt", t.Attempt, "delay", t.Delay.DelayMS, "quality", s.quality)
		err := s.runner.Record(t, s.quality, t.Delay.Preset(s.quality))
		if err != nil {
			s.state = StatePause
			return false, fmt.Errorf("could not record trial: %w", err)
		}
		s.trials = s.trials[1:]
		s.quality = -1
		if len(s.trials) == 0 {
			s.log.Info(pkg + "all trials accepted")
			s.state = StateQuit
			return true, nil
		}
		s.state = StatePause

	case EventBaseline:
		s.state = StateBaseline
		err := s.runner.PlayBaseline()
		s.state = StatePause
		if err != nil {
			return false, fmt.Errorf("could not play baseline: %w", err)
		}

	case EventCalibrate:
		s.state = StateCalibrate
		err := s.runner.Calibrate()
		s.state = StatePause
		if err != nil {
			return false, fmt.Errorf("could not recalibrate: %w", err)
		}

	case EventPause, EventNone:
		// Playback is synchronous, so pause outside a video is a
		// no-op.
	}

	return false, nil
}
