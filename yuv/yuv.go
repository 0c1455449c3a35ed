/*
DESCRIPTION
  yuv.go provides Picture, a reusable planar YUV 4:2:0 image buffer that
  is the unit of exchange between the Y4M demuxer, the foveation
  cropper, the rescaler and the codec handles.

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

// Package yuv provides a planar YUV 4:2:0 picture type along with the
// plane manipulation required by the foveated pipeline; cropping, fill
// and RGBA conversion.
package yuv

import (
	"fmt"
	"io"
)

// Limited range luma levels and the neutral chroma value.
const (
	Black         = 16
	White         = 235
	ChromaNeutral = 128
)

// Plane subsampling factors for 4:2:0, indexed by plane.
var (
	subWidth  = [3]int{1, 2, 2}
	subHeight = [3]int{1, 2, 2}
)

// Picture is a planar YUV 4:2:0 image. Planes are held in separate
// contiguous buffers with stride equal to the subsampled width. A
// Picture is intended to be allocated once and overwritten per frame.
type Picture struct {
	width  int
	height int
	planes [3][]byte
}

// NewPicture returns a Picture of the given dimensions. Dimensions must
// be positive and even so that the subsampled chroma planes have
// integer dimensions.
func NewPicture(w, h int) (*Picture, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("non-positive dimensions: %dx%d", w, h)
	}
	if w%2 != 0 || h%2 != 0 {
		return nil, fmt.Errorf("dimensions must be even: %dx%d", w, h)
	}
	p := &Picture{width: w, height: h}
	for i := range p.planes {
		pw, ph := p.PlaneDims(i)
		p.planes[i] = make([]byte, pw*ph)
	}
	return p, nil
}

// Width returns the luma plane width in pixels.
func (p *Picture) Width() int { return p.width }

// Height returns the luma plane height in pixels.
func (p *Picture) Height() int { return p.height }

// Plane returns the backing bytes of plane i (0 luma, 1 Cb, 2 Cr).
func (p *Picture) Plane(i int) []byte { return p.planes[i] }

// PlaneDims returns the dimensions of plane i after subsampling.
func (p *Picture) PlaneDims(i int) (w, h int) {
	return p.width / subWidth[i], p.height / subHeight[i]
}

// Stride returns the row stride in bytes of plane i.
func (p *Picture) Stride(i int) int { return p.width / subWidth[i] }

// Size returns the total number of bytes of one frame, i.e. w*h*3/2.
func (p *Picture) Size() int {
	return len(p.planes[0]) + len(p.planes[1]) + len(p.planes[2])
}

// Fill sets every luma sample to y and every chroma sample of the
// respective planes to u and v.
func (p *Picture) Fill(y, u, v byte) {
	fill(p.planes[0], y)
	fill(p.planes[1], u)
	fill(p.planes[2], v)
}

// CopyFrom copies the planes of src into p. Dimensions must match.
func (p *Picture) CopyFrom(src *Picture) error {
	if src.width != p.width || src.height != p.height {
		return fmt.Errorf("dimension mismatch: %dx%d into %dx%d", src.width, src.height, p.width, p.height)
	}
	for i := range p.planes {
		copy(p.planes[i], src.planes[i])
	}
	return nil
}

// ReadFrom fills the picture's planes from r in Y, Cb, Cr order, as
// laid out in a Y4M frame or in the rawvideo output of a decoder.
func (p *Picture) ReadFrom(r io.Reader) error {
	for i := range p.planes {
		_, err := io.ReadFull(r, p.planes[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteTo writes the picture's planes to w in Y, Cb, Cr order, the
// layout expected on the raw input pipe of an encoder handle.
func (p *Picture) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i := range p.planes {
		n, err := w.Write(p.planes[i])
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
