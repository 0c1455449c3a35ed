/*
DESCRIPTION
  encoder.go defines the encoder contract of the pipeline; one encode
  per delivered gaze sample, producing an optional foreground access
  unit paired with the exact gaze that produced it, and an optional
  background access unit.

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

// Package encoder provides the foveated two-stream encoder and its
// test-only dummy variants.
package encoder

import (
	"errors"

	"github.com/ausocean/fovid/gaze"
	"github.com/ausocean/fovid/yuv"
)

// GazeChangeThreshold is the pixel delta below which successive gaze
// samples are treated as unmoved and the foreground is not re-encoded.
const GazeChangeThreshold = 10

// DiffThresh is the gaze delta in source pixels that triggers the
// dummy encoders, and the threshold handed to the gaze source's
// triggered wait by the probe binaries so both act on the same event.
const DiffThresh = 50

// LingerFrames is the number of encodes a triggered dummy encoder
// performs in the white state before terminating.
const LingerFrames = 1

// ErrFinished is the terminal error returned by the dummy encoders
// once the white state has lingered for LingerFrames encodes.
var ErrFinished = errors.New("finished")

// FGUnit is a foreground access unit paired with the exact gaze sample
// used to crop it, so the compositor can place it correctly even after
// queueing delay.
type FGUnit struct {
	NAL  []byte
	Gaze gaze.Sample
}

// Frames is the result of one encode; either unit may be absent.
type Frames struct {
	FG *FGUnit
	BG []byte
}

// Empty reports whether the encode produced no output.
func (f Frames) Empty() bool { return f.FG == nil && f.BG == nil }

// Bytes returns the total encoded size of the result.
func (f Frames) Bytes() int {
	n := len(f.BG)
	if f.FG != nil {
		n += len(f.FG.NAL)
	}
	return n
}

// Encoder is the contract between the pipeline and an encoding
// backend. EncodeFrame is called once per gaze delivery; io.EOF ends
// the stream cleanly and ErrFinished terminates a dummy run.
type Encoder interface {
	// EncodeFrame advances the source if due and encodes the streams
	// affected by the elapsed time and the given gaze.
	EncodeFrame(g gaze.Sample) (Frames, error)

	// Width and Height return the source geometry.
	Width() int
	Height() int

	// Close releases the encoder handles.
	Close() error
}

// FrameEncoder is the parameter-driven handle an Encoder feeds frames
// to; satisfied by codec/x264.Encoder and by test stubs.
type FrameEncoder interface {
	// Encode submits one frame, returning an access unit or nil if
	// output is delayed.
	Encode(p *yuv.Picture) ([]byte, error)

	// Drain closes the handle's input and returns any delayed units.
	Drain() ([][]byte, error)

	// Close releases the handle.
	Close() error
}

// FoveaSize converts a fovea radius in macroblocks to the side length
// in pixels of the foreground crop, clamped to the source height.
func FoveaSize(fovea, height int) (int, error) {
	if fovea <= 0 {
		return 0, errors.New("two-stream requires fovea to be non-zero")
	}
	size := fovea * gaze.MacroblockSize
	if size > height {
		size = height
	}
	return yuv.EvenDim(size), nil
}
