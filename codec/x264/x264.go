/*
DESCRIPTION
  x264.go provides a parameter-driven handle on the x264 encoder. The
  handle feeds raw 4:2:0 frames to an x264 subprocess over a pipe and
  lexes the resulting Annex-B bytestream into access units, which are
  delivered asynchronously; an Encode call may legitimately return no
  unit when the encoder has delayed output.

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

// Package x264 provides an H.264 encoder handle over the x264 binary.
package x264

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/ausocean/fovid/codec/h264"
	"github.com/ausocean/fovid/yuv"
	"github.com/ausocean/utils/logging"
)

// To indicate package when logging.
const pkg = "x264: "

// Presets accepted by the Preset parameter, fastest first.
var Presets = [...]string{
	"ultrafast",
	"superfast",
	"veryfast",
	"faster",
	"fast",
	"medium",
	"slow",
	"slower",
	"veryslow",
	"placebo",
}

// Parameter defaults. The foreground stream wants the fastest usable
// preset; the background runs a slightly slower preset at a much
// higher CRF.
const (
	defaultPreset  = "superfast"
	defaultTune    = "zerolatency"
	defaultCRF     = 24.0
	defaultBGCRF   = 33.0
	maxCRF         = 51.0
	defaultBinary  = "x264"
	nalChanDepth   = 16
)

// Configuration errors.
var (
	errBadDims   = errors.New("dimensions bad; must be positive and even")
	errBadFPS    = errors.New("frame rate bad; must be positive")
	errBadCRF    = errors.New("CRF bad; not in [0,51]")
	errBadPreset = errors.New("preset bad; not an x264 preset")
)

// Params describes an encoder handle configuration. Rate control is
// CRF only; keyframe placement is fixed to a single IDR at stream
// start with scenecut disabled, which every stream in this pipeline
// requires.
type Params struct {
	Width  int
	Height int
	FPS    float64
	CRF    float64
	Preset string
	Tune   string
}

// NewParams returns Params with defaults for the given geometry and
// frame rate; superfast preset and zerolatency tune.
func NewParams(w, h int, fps float64) Params {
	return Params{Width: w, Height: h, FPS: fps, CRF: defaultCRF, Preset: defaultPreset, Tune: defaultTune}
}

// NewBackgroundParams returns Params for a background stream; the
// faster preset and a high CRF.
func NewBackgroundParams(w, h int, fps float64) Params {
	return Params{Width: w, Height: h, FPS: fps, CRF: defaultBGCRF, Preset: "faster", Tune: defaultTune}
}

// Validate checks p for validity.
func (p Params) Validate() error {
	if p.Width <= 0 || p.Height <= 0 || p.Width%2 != 0 || p.Height%2 != 0 {
		return fmt.Errorf("%w: %dx%d", errBadDims, p.Width, p.Height)
	}
	if p.FPS <= 0 {
		return fmt.Errorf("%w: %v", errBadFPS, p.FPS)
	}
	if p.CRF < 0 || p.CRF > maxCRF {
		return fmt.Errorf("%w: %v", errBadCRF, p.CRF)
	}
	ok := false
	for _, pre := range Presets {
		if p.Preset == pre {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: %q", errBadPreset, p.Preset)
	}
	return nil
}

// Args returns the x264 command line arguments for p. The input is raw
// i420 on stdin and the output is an Annex-B bytestream on stdout.
func (p Params) Args() []string {
	args := []string{
		"--demuxer", "raw",
		"--input-csp", "i420",
		"--input-res", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"--fps", strconv.FormatFloat(p.FPS, 'f', -1, 64),
		"--preset", p.Preset,
		"--crf", strconv.FormatFloat(p.CRF, 'f', -1, 64),
		"--keyint", "infinite",
		"--min-keyint", "infinite",
		"--scenecut", "0",
	}
	if p.Tune != "" {
		args = append(args, "--tune", p.Tune)
	}
	return append(args, "--output", "-", "-")
}

// Encoder is a handle on one encoding session. Frames written with
// Encode are paced by the caller; encoded access units are collected
// from the subprocess by a lexing routine and handed back on Encode or
// Drain.
type Encoder struct {
	params  Params
	log     logging.Logger
	cmd     *exec.Cmd
	in      io.WriteCloser
	nals    chan []byte
	lexErr  chan error
	started bool
	wg      sync.WaitGroup
}

// New returns an Encoder for the given params, or an error if the
// params do not validate.
func New(l logging.Logger, p Params) (*Encoder, error) {
	err := p.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid encoder params: %w", err)
	}
	return &Encoder{
		params: p,
		log:    l,
		nals:   make(chan []byte, nalChanDepth),
		lexErr: make(chan error, 1),
	}, nil
}

// Params returns a copy of the encoder's params.
func (e *Encoder) Params() Params { return e.params }

// Start launches the encoder subprocess and its output lexing routine.
func (e *Encoder) Start() error {
	if e.started {
		return errors.New("encoder already started")
	}

	e.cmd = exec.Command(defaultBinary, e.params.Args()...)

	var err error
	e.in, err = e.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("could not create encoder input pipe: %w", err)
	}
	out, err := e.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("could not create encoder output pipe: %w", err)
	}
	stderr, err := e.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("could not create encoder stderr pipe: %w", err)
	}

	err = e.cmd.Start()
	if err != nil {
		return fmt.Errorf("could not start x264: %w", err)
	}
	e.started = true
	e.log.Info(pkg+"encoder started", "args", e.params.Args())

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			e.log.Debug(pkg+"stderr", "line", sc.Text())
		}
	}()
	go func() {
		defer e.wg.Done()
		defer close(e.nals)
		err := h264.Lex(chanWriter(e.nals), out, 0)
		if err != nil && err != io.EOF {
			e.lexErr <- err
		}
	}()

	return nil
}

// Encode submits one frame to the encoder and returns an encoded
// access unit if one is available. A nil unit with nil error means the
// encoder has delayed its output; the unit will be handed back on a
// later call or by Drain.
func (e *Encoder) Encode(p *yuv.Picture) ([]byte, error) {
	if !e.started {
		return nil, errors.New("encoder not started")
	}
	if p.Width() != e.params.Width || p.Height() != e.params.Height {
		return nil, fmt.Errorf("frame is %dx%d, encoder configured for %dx%d", p.Width(), p.Height(), e.params.Width, e.params.Height)
	}

	select {
	case err := <-e.lexErr:
		return nil, fmt.Errorf("encoder output error: %w", err)
	default:
	}

	_, err := p.WriteTo(e.in)
	if err != nil {
		return nil, fmt.Errorf("could not write frame to encoder: %w", err)
	}

	select {
	case nal := <-e.nals:
		return nal, nil
	default:
		return nil, nil
	}
}

// Drain closes the encoder's input and collects all remaining access
// units.
func (e *Encoder) Drain() ([][]byte, error) {
	if !e.started {
		return nil, nil
	}
	err := e.in.Close()
	if err != nil {
		return nil, fmt.Errorf("could not close encoder input: %w", err)
	}
	var units [][]byte
	for nal := range e.nals {
		units = append(units, nal)
	}
	select {
	case err := <-e.lexErr:
		return units, err
	default:
	}
	return units, nil
}

// Close terminates the subprocess and waits for the handle's routines.
// Callers wanting the delayed output should call Drain first.
func (e *Encoder) Close() error {
	if !e.started {
		return nil
	}
	e.in.Close()

	// Discard any undelivered units so the lexing routine can finish
	// even when the caller skipped Drain.
	discarded := make(chan struct{})
	go func() {
		for range e.nals {
		}
		close(discarded)
	}()

	err := e.cmd.Wait()
	e.wg.Wait()
	<-discarded
	e.started = false
	if err != nil {
		return fmt.Errorf("x264 exited with error: %w", err)
	}
	return nil
}

// chanWriter adapts a NAL channel to the io.Writer taken by the lexer,
// copying each unit since the lexer reuses its buffer.
type chanWriter chan []byte

func (c chanWriter) Write(p []byte) (int, error) {
	unit := make([]byte, len(p))
	copy(unit, p)
	c <- unit
	return len(p), nil
}
