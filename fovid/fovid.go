/*
DESCRIPTION
  fovid.go provides an API for running a gaze-driven foveated video
  session; an encoder routine and a display loop connected by bounded
  channels, with an optional serial latency probe.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Alan Noble <alan@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package fovid provides an API for reading, foveating, encoding and
// displaying gaze-driven video streams.
package fovid

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ausocean/fovid/client"
	"github.com/ausocean/fovid/encoder"
	"github.com/ausocean/fovid/fovid/config"
	"github.com/ausocean/fovid/gaze"
)

// To indicate package when logging.
const pkg = "fovid: "

// Channel capacities are small so a slow consumer stalls its producer
// rather than accumulating unbounded memory.
const chanDepth = 16

// probeWarmup is how long the pipeline runs before the probe fires, so
// caches and the display path are warm when measuring.
const probeWarmup = 1500 * time.Millisecond

// Fovid provides methods to control a foveated video session.
type Fovid struct {
	// cfg holds the Fovid configuration.
	cfg config.Config

	// enc produces encoded frame pairs from gaze samples.
	enc encoder.Encoder

	// client decodes and composites the frame pairs.
	client *client.Client

	// src produces gaze samples; polled on the display thread.
	src gaze.Source

	// probe is the optional latency measurement device.
	probe *Probe

	// gazeCh carries samples from the display loop to the encoder
	// routine; nalCh carries encoded pairs back.
	gazeCh chan gaze.Sample
	nalCh  chan encoder.Frames

	// stop signals the encoder routine to end the session.
	stop chan struct{}

	// fgSender and bgSender tee the encoded streams to disk.
	fgSender io.WriteCloser
	bgSender io.WriteCloser

	// encErr holds the terminal error of the encoder routine; read
	// after wg completes.
	encErr error

	// lastLatency is the probe measurement of the last run in
	// microseconds; negative when none was taken.
	lastLatency int64

	running   bool
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Option is a functional option for New.
type Option func(*Fovid)

// WithEncoder substitutes the encoder built from config; used by the
// latency binaries to install the dummy encoders.
func WithEncoder(e encoder.Encoder) Option {
	return func(r *Fovid) { r.enc = e }
}

// WithGazeSource substitutes the gaze source built from config.
func WithGazeSource(s gaze.Source) Option {
	return func(r *Fovid) { r.src = s }
}

// New returns a pointer to a new Fovid with the desired configuration,
// fully wired: encoder, client, gaze source, file senders and probe.
func New(c config.Config, opts ...Option) (*Fovid, error) {
	r := &Fovid{
		gazeCh: make(chan gaze.Sample, chanDepth),
		nalCh:  make(chan encoder.Frames, chanDepth),
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	err := r.setup(c)
	if err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Config returns a copy of the current config.
func (r *Fovid) Config() config.Config { return r.cfg }

// Client returns the compositing client, for callers needing stats or
// key events.
func (r *Fovid) Client() *client.Client { return r.client }

// GazeSource returns the session gaze source.
func (r *Fovid) GazeSource() gaze.Source { return r.src }

// Start invokes the encoder routine. The display loop is driven
// separately by Run on the caller's (main) thread.
func (r *Fovid) Start() error {
	if r.running {
		r.cfg.Logger.Warning(pkg + "start called, but fovid already running")
		return nil
	}
	r.cfg.Logger.Debug(pkg + "starting encoder routine")
	r.wg.Add(1)
	go r.encodeFrom()
	r.running = true
	return nil
}

// Run drives the display loop until the encoder ends the stream or
// Stop is called. Each encoded pair pulled from the channel is
// answered with a fresh gaze sample before being displayed, so the
// encoder works on the next frame while the client presents the
// current one. Must be called from the main thread.
func (r *Fovid) Run() error {
	r.cfg.Logger.Debug(pkg + "priming gaze channel")
	r.gazeCh <- r.src.Sample()

	start := time.Now()
	probeFired := false
	var latency int64 = -1

	for frames := range r.nalCh {
		if r.probe != nil && !probeFired && time.Since(start) >= probeWarmup {
			probeFired = true
			err := r.probe.Trigger()
			if err != nil {
				r.cfg.Logger.Warning(pkg+"probe trigger failed", "error", err.Error())
				r.gazeCh <- r.src.Sample()
			} else {
				// Block until the stimulus moves the gaze, and send
				// the sample of that exact event.
				g := r.src.TriggeredSample(encoder.DiffThresh)
				r.cfg.Logger.Info(pkg+"gaze trigger observed", "seqno", g.Seqno)
				r.gazeCh <- g
			}
		} else {
			select {
			case r.gazeCh <- r.src.Sample():
			case <-r.stop:
			}
		}

		err := r.client.DisplayFrame(frames.FG, frames.BG)
		if err != nil {
			// The display loop is never poisoned by one bad frame.
			r.cfg.Logger.Error(pkg+"display error", "error", err.Error())
		}
	}

	r.cfg.Logger.Debug(pkg + "stream ended, joining encoder routine")
	r.wg.Wait()
	r.running = false

	if probeFired {
		us, err := r.probe.Read()
		if err != nil {
			r.cfg.Logger.Warning(pkg+"no probe measurement for this trial", "error", err.Error())
		} else {
			latency = us
			r.cfg.Logger.Info(pkg+"probe measurement", "us", us)
		}
	}

	r.lastLatency = latency
	err := AppendRecord(r.cfg, Record{Name: "fovid", Stats: r.client.Stats(), LatencyUS: latency})
	if err != nil {
		r.cfg.Logger.Error(pkg+"could not append trial record", "error", err.Error())
	}

	return r.encErr
}

// Stop closes down the pipeline; the encoder routine exits, the NAL
// channel closes, and Run returns.
func (r *Fovid) Stop() {
	if !r.running {
		r.cfg.Logger.Warning(pkg + "stop called but fovid isn't running")
		return
	}
	close(r.stop)
	r.cfg.Logger.Info(pkg + "stop signalled")
}

// LastLatency returns the probe measurement of the last run in
// microseconds, or a negative value when none was taken.
func (r *Fovid) LastLatency() int64 { return r.lastLatency }

// Running reports whether the encoder routine is active.
func (r *Fovid) Running() bool { return r.running }

// Update takes a map of variables and their values and edits the
// current config if the variables are recognised as valid parameters.
// A running session is stopped first.
func (r *Fovid) Update(vars map[string]string) error {
	if r.running {
		r.cfg.Logger.Debug(pkg + "fovid running; stopping for re-config")
		r.Stop()
	}
	r.cfg.Update(vars)
	err := r.cfg.Validate()
	if err != nil {
		return errors.New("config is bad: " + err.Error())
	}
	r.cfg.Logger.Info(pkg + "finished reconfig")
	return nil
}

// Close releases every pipeline resource in deterministic order:
// encoder handles, senders, probe, gaze source (stopping tracker
// recording), then the client and window system. Safe to call more
// than once and from deferred paths.
func (r *Fovid) Close() error {
	r.closeOnce.Do(func() {
		keep := func(err error) {
			if err != nil && r.closeErr == nil {
				r.closeErr = err
			}
		}

		if r.enc != nil {
			keep(r.enc.Close())
		}
		if r.fgSender != nil {
			keep(r.fgSender.Close())
		}
		if r.bgSender != nil {
			keep(r.bgSender.Close())
		}
		if r.probe != nil {
			keep(r.probe.Close())
		}
		if r.src != nil {
			keep(r.src.Close())
		}
		if r.client != nil {
			keep(r.client.Close())
		}
	})
	return r.closeErr
}
