/*
DESCRIPTION
  pipeline.go provides set up of the fovid processing pipeline and the
  encoder routine feeding it.

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

package fovid

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ausocean/fovid/client"
	"github.com/ausocean/fovid/encoder"
	"github.com/ausocean/fovid/fovid/config"
	"github.com/ausocean/fovid/gaze"
	"github.com/ausocean/fovid/gaze/eyelink"
	"github.com/ausocean/utils/logging"
)

// Output stream file names within the session output directory.
const (
	BGStreamFile = "video.h264"
	FGStreamFile = "foreground.h264"
	TraceFile    = "eyetrace.edf"
)

// setup validates the config and builds whatever parts of the pipeline
// were not substituted through options; encoder, client, gaze source,
// stream senders and the probe.
func (r *Fovid) setup(c config.Config) error {
	r.cfg = c
	r.cfg.Logger.Debug(pkg + "validating config")
	err := c.Validate()
	if err != nil {
		return errors.New("config struct is bad: " + err.Error())
	}
	r.cfg = c
	r.cfg.Logger.SetLevel(r.cfg.LogLevel)
	r.cfg.Logger.Info(pkg + "config validated")

	err = os.MkdirAll(r.cfg.OutputDir, 0755)
	if err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	if r.enc == nil {
		switch r.cfg.Alg {
		case config.AlgTwoStream:
			r.cfg.Logger.Debug(pkg + "using two-stream encoder")
			r.enc, err = encoder.NewTwoStream(r.cfg.Logger, r.cfg)
			if err != nil {
				return fmt.Errorf("could not create encoder: %w", err)
			}
		default:
			// The parameter-driven encoder handle has no access to
			// per-macroblock quantizer offsets, which the single
			// stream algorithms need.
			return fmt.Errorf("algorithm %q is not supported by this encoder", r.cfg.Alg)
		}
	}

	r.cfg.Logger.Debug(pkg + "creating client")
	r.client, err = client.New(r.cfg.Logger, r.cfg, r.enc.Width(), r.enc.Height())
	if err != nil {
		return fmt.Errorf("could not create client: %w", err)
	}

	if r.src == nil {
		r.src, err = NewGazeSource(r.cfg.Logger, r.cfg, r.client.Geometry())
		if err != nil {
			return fmt.Errorf("could not create gaze source: %w", err)
		}
	}

	r.cfg.Logger.Debug(pkg + "creating stream senders")
	r.bgSender, err = newNALSender(r.cfg.Logger, filepath.Join(r.cfg.OutputDir, BGStreamFile))
	if err != nil {
		return fmt.Errorf("could not create background sender: %w", err)
	}
	r.fgSender, err = newNALSender(r.cfg.Logger, filepath.Join(r.cfg.OutputDir, FGStreamFile))
	if err != nil {
		return fmt.Errorf("could not create foreground sender: %w", err)
	}

	if r.cfg.SerialPort != "" {
		r.probe, err = NewProbe(r.cfg.Logger, r.cfg.SerialPort, int(r.cfg.Baud))
		if err != nil {
			return fmt.Errorf("could not create latency probe: %w", err)
		}
	}

	r.cfg.Logger.Info(pkg + "pipeline set up")
	return nil
}

// NewGazeSource builds the gaze source selected by cfg for a display
// described by geom. Tracker initialization failure is fatal to the
// session.
func NewGazeSource(l logging.Logger, cfg config.Config, geom gaze.Geometry) (gaze.Source, error) {
	delay := cfg.Delay()

	switch cfg.GazeSource {
	case config.GazeMouse:
		l.Debug(pkg + "using mouse gaze source")
		return gaze.NewMouse(l, geom, delay)

	case config.GazeEyelink:
		l.Debug(pkg + "using eyelink gaze source")
		ses, err := eyelink.Connect(l, eyelink.Options{
			Calibrate:    cfg.Calibrate,
			Record:       cfg.Record,
			EDFFile:      cfg.EDFFile,
			TransferPath: filepath.Join(cfg.OutputDir, TraceFile),
		})
		if err != nil {
			return nil, fmt.Errorf("could not connect tracker: %w", err)
		}
		return gaze.NewTracker(l, geom, delay, ses)

	case config.GazeTrace:
		l.Debug(pkg+"using trace gaze source", "trace", cfg.TraceFile)
		return gaze.NewTrace(l, geom, delay, cfg.TraceFile)

	default:
		return nil, fmt.Errorf("unrecognised gaze source: %q", cfg.GazeSource)
	}
}

// encodeFrom is run as a routine reading gaze samples, encoding frame
// pairs, teeing the encoded units to disk, and passing the pairs to
// the display loop. A stream EOF or dummy completion closes the NAL
// channel so the display loop exits naturally.
func (r *Fovid) encodeFrom() {
	defer r.wg.Done()
	defer close(r.nalCh)

	for {
		var g gaze.Sample
		select {
		case <-r.stop:
			r.drainDelayed()
			return
		case g = <-r.gazeCh:
		}

		frames, err := r.enc.EncodeFrame(g)
		switch {
		case err == nil:
		case err == io.EOF || err == encoder.ErrFinished:
			r.cfg.Logger.Info(pkg+"end of stream", "cause", err.Error())
			r.drainDelayed()
			return
		default:
			r.cfg.Logger.Error(pkg+"encode error", "error", err.Error())
			r.encErr = err
			return
		}

		r.send(frames)
	}
}

// send tees the encoded units to the stream files and hands the pair
// to the display loop, unless the session is stopping.
func (r *Fovid) send(frames encoder.Frames) {
	if frames.BG != nil {
		r.bgSender.Write(frames.BG)
	}
	if frames.FG != nil {
		r.fgSender.Write(frames.FG.NAL)
	}
	select {
	case r.nalCh <- frames:
	case <-r.stop:
	}
}

// drainDelayed collects delayed output held by draining encoders so
// the final frames reach both the files and the display.
func (r *Fovid) drainDelayed() {
	d, ok := r.enc.(interface{ Drain() ([]encoder.Frames, error) })
	if !ok {
		return
	}
	frames, err := d.Drain()
	if err != nil {
		r.cfg.Logger.Warning(pkg+"could not drain encoder", "error", err.Error())
		return
	}
	for _, f := range frames {
		r.send(f)
	}
}
