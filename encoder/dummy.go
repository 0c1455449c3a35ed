/*
DESCRIPTION
  dummy.go provides encoders that ignore their input video and instead
  emit a black frame until a gaze movement beyond a threshold is
  observed, then a frame with a white patch in a known corner. These
  exist solely to produce ground-truth pulses that a photodiode can
  detect, isolating the pipeline's contribution to measured latency.

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

package encoder

import (
	"fmt"

	"github.com/ausocean/fovid/codec/x264"
	"github.com/ausocean/fovid/gaze"
	"github.com/ausocean/fovid/yuv"
	"github.com/ausocean/utils/logging"
)

// boxDivisor sets the white patch side length relative to the frame
// width; a whole screen of white adds measurable display latency, so
// only a small corner patch is lit.
const boxDivisor = 19

// whitePatch draws the white box into the bottom-left corner of an
// otherwise black picture and returns its side length.
func whitePatch(p *yuv.Picture) int {
	w, h := p.Width(), p.Height()
	box := w / boxDivisor
	luma := p.Plane(0)
	for r := h - box; r < h; r++ {
		for c := 0; c < box; c++ {
			luma[r*w+c] = yuv.White
		}
	}
	return box
}

// trigger is the shared black-to-white state machine of the dummy
// encoders.
type trigger struct {
	firstGaze *gaze.Sample
	triggered bool
	lingered  int
}

// step advances the trigger with g, comparing against the first ever
// observed gaze; once the delta exceeds DiffThresh on either axis the
// trigger is permanently set. white reports whether this encode is in
// the white state, and done that the white state has already lingered
// for LingerFrames encodes and the stream must terminate.
func (t *trigger) step(g gaze.Sample) (white, done bool) {
	if t.lingered >= LingerFrames {
		return false, true
	}
	if t.firstGaze == nil {
		first := g
		t.firstGaze = &first
	}
	if !t.triggered &&
		(abs(g.PX-t.firstGaze.PX) > DiffThresh || abs(g.PY-t.firstGaze.PY) > DiffThresh) {
		t.triggered = true
	}
	if t.triggered {
		t.lingered++
	}
	return t.triggered, false
}

// Dummy is the single-stream dummy encoder; the full-size black or
// white picture is encoded as the background stream.
type Dummy struct {
	log      logging.Logger
	picBlack *yuv.Picture
	picWhite *yuv.Picture
	enc      FrameEncoder
	width    int
	height   int
	trig     trigger
}

// NewDummy returns a Dummy of the given geometry over an x264 handle.
func NewDummy(l logging.Logger, width, height int) (*Dummy, error) {
	enc, err := x264.New(l, x264.NewParams(width, height, 30))
	if err != nil {
		return nil, fmt.Errorf("could not create dummy encoder handle: %w", err)
	}
	d, err := NewDummyWith(l, enc, width, height)
	if err != nil {
		return nil, err
	}
	err = enc.Start()
	if err != nil {
		return nil, fmt.Errorf("could not start dummy encoder handle: %w", err)
	}
	return d, nil
}

// NewDummyWith returns a Dummy over the given handle; used by tests.
func NewDummyWith(l logging.Logger, enc FrameEncoder, width, height int) (*Dummy, error) {
	picBlack, err := yuv.NewPicture(width, height)
	if err != nil {
		return nil, err
	}
	picBlack.Fill(yuv.Black, yuv.ChromaNeutral, yuv.ChromaNeutral)

	picWhite, err := yuv.NewPicture(width, height)
	if err != nil {
		return nil, err
	}
	picWhite.Fill(yuv.Black, yuv.ChromaNeutral, yuv.ChromaNeutral)
	whitePatch(picWhite)

	return &Dummy{
		log:      l,
		picBlack: picBlack,
		picWhite: picWhite,
		enc:      enc,
		width:    width,
		height:   height,
	}, nil
}

// Width returns the dummy frame width.
func (d *Dummy) Width() int { return d.width }

// Height returns the dummy frame height.
func (d *Dummy) Height() int { return d.height }

// Triggered reports whether the white state has been entered.
func (d *Dummy) Triggered() bool { return d.trig.triggered }

// EncodeFrame implements Encoder. All-black pictures are produced
// until the gaze delta first exceeds DiffThresh; from that instant the
// white-patch picture is produced for LingerFrames further encodes,
// then ErrFinished.
func (d *Dummy) EncodeFrame(g gaze.Sample) (Frames, error) {
	white, done := d.trig.step(g)
	if done {
		return Frames{}, ErrFinished
	}

	pic := d.picBlack
	if white {
		d.log.Debug(pkg + "dummy changing white")
		pic = d.picWhite
	}

	nal, err := d.enc.Encode(pic)
	if err != nil {
		return Frames{}, fmt.Errorf("could not encode dummy frame: %w", err)
	}
	return Frames{BG: nal}, nil
}

// Drain collects delayed output of the handle as background units.
func (d *Dummy) Drain() ([]Frames, error) {
	units, err := d.enc.Drain()
	if err != nil {
		return nil, fmt.Errorf("could not drain dummy handle: %w", err)
	}
	var out []Frames
	for _, nal := range units {
		out = append(out, Frames{BG: nal})
	}
	return out, nil
}

// Close releases the encoder handle.
func (d *Dummy) Close() error { return d.enc.Close() }

// DummyTwoStream is the two-stream dummy; the black or white picture
// is rescaled into the background stream and cropped into the
// foreground stream, and upon triggering the logical gaze is relocated
// to the center of the white patch so the crop captures the lit
// region.
type DummyTwoStream struct {
	log      logging.Logger
	picBlack *yuv.Picture
	picWhite *yuv.Picture
	fgPic    *yuv.Picture
	bgPic    *yuv.Picture
	fgEnc    FrameEncoder
	bgEnc    FrameEncoder
	scaler   *yuv.Rescaler
	fovea    int
	box      int
	width    int
	height   int
	trig     trigger
}

// NewDummyTwoStream returns a DummyTwoStream of the given geometry
// over x264 handles. fovea is in macroblocks as for the production
// encoder; bgW and bgH give the background stream geometry.
func NewDummyTwoStream(l logging.Logger, width, height, fovea, bgW, bgH int) (*DummyTwoStream, error) {
	size, err := FoveaSize(fovea, height)
	if err != nil {
		return nil, err
	}

	fgEnc, err := x264.New(l, x264.NewParams(size, size, 30))
	if err != nil {
		return nil, fmt.Errorf("could not create foreground handle: %w", err)
	}
	bgEnc, err := x264.New(l, x264.NewBackgroundParams(bgW, bgH, 30))
	if err != nil {
		return nil, fmt.Errorf("could not create background handle: %w", err)
	}

	d, err := NewDummyTwoStreamWith(l, fgEnc, bgEnc, width, height, size, bgW, bgH)
	if err != nil {
		return nil, err
	}

	err = fgEnc.Start()
	if err != nil {
		return nil, fmt.Errorf("could not start foreground handle: %w", err)
	}
	err = bgEnc.Start()
	if err != nil {
		return nil, fmt.Errorf("could not start background handle: %w", err)
	}
	return d, nil
}

// NewDummyTwoStreamWith returns a DummyTwoStream over the given
// handles; size is the foreground crop side length in pixels. Used by
// tests.
func NewDummyTwoStreamWith(l logging.Logger, fgEnc, bgEnc FrameEncoder, width, height, size, bgW, bgH int) (*DummyTwoStream, error) {
	picBlack, err := yuv.NewPicture(width, height)
	if err != nil {
		return nil, err
	}
	picBlack.Fill(yuv.Black, yuv.ChromaNeutral, yuv.ChromaNeutral)

	picWhite, err := yuv.NewPicture(width, height)
	if err != nil {
		return nil, err
	}
	picWhite.Fill(yuv.Black, yuv.ChromaNeutral, yuv.ChromaNeutral)
	box := whitePatch(picWhite)

	fgPic, err := yuv.NewPicture(size, size)
	if err != nil {
		return nil, err
	}
	bgPic, err := yuv.NewPicture(bgW, bgH)
	if err != nil {
		return nil, err
	}
	scaler, err := yuv.NewRescaler(width, height, bgW, bgH)
	if err != nil {
		return nil, err
	}

	return &DummyTwoStream{
		log:      l,
		picBlack: picBlack,
		picWhite: picWhite,
		fgPic:    fgPic,
		bgPic:    bgPic,
		fgEnc:    fgEnc,
		bgEnc:    bgEnc,
		scaler:   scaler,
		fovea:    size,
		box:      box,
		width:    width,
		height:   height,
	}, nil
}

// Width returns the dummy frame width.
func (d *DummyTwoStream) Width() int { return d.width }

// Height returns the dummy frame height.
func (d *DummyTwoStream) Height() int { return d.height }

// Triggered reports whether the white state has been entered.
func (d *DummyTwoStream) Triggered() bool { return d.trig.triggered }

// EncodeFrame implements Encoder.
func (d *DummyTwoStream) EncodeFrame(g gaze.Sample) (Frames, error) {
	white, done := d.trig.step(g)
	if done {
		d.log.Info(pkg + "dummy finished")
		return Frames{}, ErrFinished
	}

	pic := d.picBlack
	if white {
		pic = d.picWhite
		// Relocate the logical gaze to the center of the white patch
		// so the crop captures the lit region.
		g.PX = d.box / 2
		g.PY = d.height - d.box/2
	}

	err := d.scaler.Rescale(pic, d.bgPic)
	if err != nil {
		return Frames{}, fmt.Errorf("could not rescale dummy background: %w", err)
	}
	bgNAL, err := d.bgEnc.Encode(d.bgPic)
	if err != nil {
		return Frames{}, fmt.Errorf("could not encode dummy background: %w", err)
	}

	yuv.CropTo(pic, g.PX, g.PY, d.fgPic)
	fgNAL, err := d.fgEnc.Encode(d.fgPic)
	if err != nil {
		return Frames{}, fmt.Errorf("could not encode dummy foreground: %w", err)
	}

	frames := Frames{BG: bgNAL}
	if fgNAL != nil {
		frames.FG = &FGUnit{NAL: fgNAL, Gaze: g}
	}
	return frames, nil
}

// Drain collects delayed output of both handles. Foreground units are
// paired with the white-patch center when triggered, since that is
// where every post-trigger crop was taken.
func (d *DummyTwoStream) Drain() ([]Frames, error) {
	var out []Frames

	g := gaze.Sample{PX: d.width / 2, PY: d.height / 2}
	if d.trig.triggered {
		g = gaze.Sample{PX: d.box / 2, PY: d.height - d.box/2}
	}

	fgUnits, err := d.fgEnc.Drain()
	if err != nil {
		return nil, fmt.Errorf("could not drain dummy foreground handle: %w", err)
	}
	for _, nal := range fgUnits {
		out = append(out, Frames{FG: &FGUnit{NAL: nal, Gaze: g}})
	}

	bgUnits, err := d.bgEnc.Drain()
	if err != nil {
		return nil, fmt.Errorf("could not drain dummy background handle: %w", err)
	}
	for _, nal := range bgUnits {
		out = append(out, Frames{BG: nal})
	}
	return out, nil
}

// Close releases the encoder handles and the rescaler.
func (d *DummyTwoStream) Close() error {
	var firstErr error
	err := d.fgEnc.Close()
	if err != nil {
		firstErr = err
	}
	err = d.bgEnc.Close()
	if err != nil && firstErr == nil {
		firstErr = err
	}
	err = d.scaler.Close()
	if err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
