/*
DESCRIPTION
  ffdec.go provides a handle on an H.264 decoder; Annex-B access units
  are written to an ffmpeg subprocess and decoded rawvideo frames are
  collected by a reading routine. Decode is non-blocking on the output
  side so the display loop is never stalled by a decoder that has not
  yet produced a frame.

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

// Package ffdec provides an H.264 decoder handle over the ffmpeg
// binary.
package ffdec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/ausocean/fovid/yuv"
	"github.com/ausocean/utils/logging"
)

// To indicate package when logging.
const pkg = "ffdec: "

const (
	defaultBinary  = "ffmpeg"
	frameChanDepth = 4
)

// Args returns the ffmpeg arguments for a low-delay H.264 to rawvideo
// decode from stdin to stdout.
func Args() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-probesize", "32",
		"-flags", "low_delay",
		"-fflags", "nobuffer",
		"-f", "h264",
		"-i", "pipe:0",
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p",
		"pipe:1",
	}
}

// Decoder is a handle on one decoding session of fixed geometry.
// Decoded frames are written into a small ring of internally owned
// pictures which are reused; a frame returned by Decode is valid until
// the call after next.
type Decoder struct {
	width   int
	height  int
	log     logging.Logger
	cmd     *exec.Cmd
	in      io.WriteCloser
	frames  chan *yuv.Picture
	readErr chan error
	free    chan *yuv.Picture
	held    [2]*yuv.Picture // Last two frames returned by Decode.
	started bool
	wg      sync.WaitGroup
}

// New returns a Decoder producing frames of the given geometry.
func New(l logging.Logger, w, h int) (*Decoder, error) {
	if w <= 0 || h <= 0 || w%2 != 0 || h%2 != 0 {
		return nil, fmt.Errorf("bad decode geometry: %dx%d", w, h)
	}
	d := &Decoder{
		width:   w,
		height:  h,
		log:     l,
		frames:  make(chan *yuv.Picture, frameChanDepth),
		readErr: make(chan error, 1),
		free:    make(chan *yuv.Picture, frameChanDepth+2),
	}
	for i := 0; i < frameChanDepth+2; i++ {
		p, err := yuv.NewPicture(w, h)
		if err != nil {
			return nil, err
		}
		d.free <- p
	}
	return d, nil
}

// Start launches the decoder subprocess and its frame reading routine.
func (d *Decoder) Start() error {
	if d.started {
		return errors.New("decoder already started")
	}

	d.cmd = exec.Command(defaultBinary, Args()...)

	var err error
	d.in, err = d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("could not create decoder input pipe: %w", err)
	}
	out, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("could not create decoder output pipe: %w", err)
	}
	stderr, err := d.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("could not create decoder stderr pipe: %w", err)
	}

	err = d.cmd.Start()
	if err != nil {
		return fmt.Errorf("could not start ffmpeg: %w", err)
	}
	d.started = true
	d.log.Debug(pkg+"decoder started", "width", d.width, "height", d.height)

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			// Transient decode complaints surface here; they are
			// logged and the stream continues.
			d.log.Warning(pkg+"stderr", "line", sc.Text())
		}
	}()
	go func() {
		defer d.wg.Done()
		defer close(d.frames)
		br := bufio.NewReaderSize(out, 1<<20)
		for {
			p := <-d.free
			err := p.ReadFrom(br)
			if err != nil {
				d.free <- p
				if err != io.EOF && err != io.ErrUnexpectedEOF {
					d.readErr <- err
				}
				return
			}
			d.frames <- p
		}
	}()

	return nil
}

// Decode submits one access unit and returns a decoded frame if one is
// available. A nil picture with nil error means the decoder has not
// yet produced output for this unit; it will be returned by a later
// call. The returned picture is owned by the decoder and is reused.
func (d *Decoder) Decode(nal []byte) (*yuv.Picture, error) {
	if !d.started {
		return nil, errors.New("decoder not started")
	}

	select {
	case err := <-d.readErr:
		return nil, fmt.Errorf("decoder output error: %w", err)
	default:
	}

	_, err := d.in.Write(nal)
	if err != nil {
		return nil, fmt.Errorf("could not write access unit to decoder: %w", err)
	}

	select {
	case p := <-d.frames:
		// Give the buffer back for reuse once the next-but-one frame
		// is requested; the channel ring provides the slack.
		if d.held[0] != nil {
			d.free <- d.held[0]
		}
		d.held[0], d.held[1] = d.held[1], p
		return p, nil
	default:
		return nil, nil
	}
}

// Flush closes the decoder input and returns the final pending frame,
// if any.
func (d *Decoder) Flush() (*yuv.Picture, error) {
	if !d.started {
		return nil, nil
	}
	err := d.in.Close()
	if err != nil {
		return nil, fmt.Errorf("could not close decoder input: %w", err)
	}
	var last *yuv.Picture
	for p := range d.frames {
		d.free <- p
		last = p
	}
	return last, nil
}

// Close terminates the subprocess and waits for the handle's routines.
func (d *Decoder) Close() error {
	if !d.started {
		return nil
	}
	d.in.Close()

	// Recycle any undelivered frames so the reading routine can finish
	// even when the caller skipped Flush. The free ring has capacity
	// for every buffer, so the sends cannot block.
	recycled := make(chan struct{})
	go func() {
		for p := range d.frames {
			d.free <- p
		}
		close(recycled)
	}()

	err := d.cmd.Wait()
	d.wg.Wait()
	<-recycled
	d.started = false
	if err != nil {
		return fmt.Errorf("ffmpeg exited with error: %w", err)
	}
	return nil
}
