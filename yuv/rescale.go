/*
DESCRIPTION
  rescale.go provides Rescaler, a bilinear plane rescaler used to derive
  the low-resolution background picture from a source frame.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package yuv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Rescaler rescales pictures from one fixed geometry to another using
// bilinear sampling. It is configured once per stream and reused for
// every frame; the gocv mats it owns are kept across frames and
// released on Close.
type Rescaler struct {
	srcW, srcH int
	dstW, dstH int
	dst        [3]gocv.Mat
}

// NewRescaler returns a Rescaler from (srcW,srcH) to (dstW,dstH).
func NewRescaler(srcW, srcH, dstW, dstH int) (*Rescaler, error) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return nil, fmt.Errorf("non-positive rescale geometry: %dx%d -> %dx%d", srcW, srcH, dstW, dstH)
	}
	r := &Rescaler{srcW: srcW, srcH: srcH, dstW: dstW, dstH: dstH}
	for i := range r.dst {
		r.dst[i] = gocv.NewMat()
	}
	return r, nil
}

// Rescale rescales src into dst, plane by plane. src must match the
// configured source geometry and dst the destination geometry.
func (r *Rescaler) Rescale(src, dst *Picture) error {
	if src.width != r.srcW || src.height != r.srcH {
		return fmt.Errorf("source is %dx%d, rescaler configured for %dx%d", src.width, src.height, r.srcW, r.srcH)
	}
	if dst.width != r.dstW || dst.height != r.dstH {
		return fmt.Errorf("destination is %dx%d, rescaler configured for %dx%d", dst.width, dst.height, r.dstW, r.dstH)
	}

	for i := range src.planes {
		sw, sh := src.PlaneDims(i)
		dw, dh := dst.PlaneDims(i)

		m, err := gocv.NewMatFromBytes(sh, sw, gocv.MatTypeCV8U, src.planes[i])
		if err != nil {
			return fmt.Errorf("could not wrap plane %d: %w", i, err)
		}
		gocv.Resize(m, &r.dst[i], image.Pt(dw, dh), 0, 0, gocv.InterpolationLinear)
		m.Close()

		scaled, err := r.dst[i].DataPtrUint8()
		if err != nil {
			return fmt.Errorf("could not access scaled plane %d: %w", i, err)
		}
		copy(dst.planes[i], scaled)
	}
	return nil
}

// Close releases the mats owned by the Rescaler.
func (r *Rescaler) Close() error {
	for i := range r.dst {
		r.dst[i].Close()
	}
	return nil
}
