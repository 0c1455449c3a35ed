/*
DESCRIPTION
  sharpen.go provides the smartblur and unsharp filters; a gaussian
  blur of the luma plane blended back into the original, blurring for
  positive strengths and sharpening for negative ones.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package filter

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ausocean/fovid/yuv"
)

// SmartBlur parameter defaults and bounds, matching the ranges of the
// textual chain form smartblur=lr=<radius>:ls=<strength>.
const (
	defaultLumaRadius   = 1.0
	defaultLumaStrength = -1.0
	minLumaRadius       = 0.1
	maxLumaRadius       = 5.0
	minLumaStrength     = -1.0
	maxLumaStrength     = 1.0
)

// Unsharp parameter defaults.
const (
	defaultUnsharpAmount = 1.0
	defaultUnsharpSigma  = 1.5
)

// SmartBlur blurs or sharpens the luma plane; the blurred plane is
// blended with weight ls, so negative strengths subtract blur and
// sharpen.
type SmartBlur struct {
	radius   float64
	strength float64
	blurred  gocv.Mat
	out      gocv.Mat
}

// NewSmartBlur returns a SmartBlur from chain options lr and ls.
func NewSmartBlur(opts map[string]float64) (*SmartBlur, error) {
	f := &SmartBlur{radius: defaultLumaRadius, strength: defaultLumaStrength}
	if v, ok := opts["lr"]; ok {
		f.radius = v
	}
	if v, ok := opts["ls"]; ok {
		f.strength = v
	}
	if f.radius < minLumaRadius || f.radius > maxLumaRadius {
		return nil, fmt.Errorf("smartblur luma radius %v not in [%v,%v]", f.radius, minLumaRadius, maxLumaRadius)
	}
	if f.strength < minLumaStrength || f.strength > maxLumaStrength {
		return nil, fmt.Errorf("smartblur luma strength %v not in [%v,%v]", f.strength, minLumaStrength, maxLumaStrength)
	}
	f.blurred = gocv.NewMat()
	f.out = gocv.NewMat()
	return f, nil
}

// Apply implements Filter.
func (f *SmartBlur) Apply(p *yuv.Picture) error {
	return blendBlur(p, f.radius, f.strength, &f.blurred, &f.out)
}

// Close implements Filter.
func (f *SmartBlur) Close() error {
	f.blurred.Close()
	f.out.Close()
	return nil
}

// Unsharp sharpens the luma plane by the classic unsharp mask;
// equivalent to SmartBlur with strength -amount.
type Unsharp struct {
	amount  float64
	sigma   float64
	blurred gocv.Mat
	out     gocv.Mat
}

// NewUnsharp returns an Unsharp from chain options amount and sigma.
func NewUnsharp(opts map[string]float64) (*Unsharp, error) {
	f := &Unsharp{amount: defaultUnsharpAmount, sigma: defaultUnsharpSigma}
	if v, ok := opts["amount"]; ok {
		f.amount = v
	}
	if v, ok := opts["sigma"]; ok {
		f.sigma = v
	}
	if f.amount < 0 || f.amount > 2 {
		return nil, fmt.Errorf("unsharp amount %v not in [0,2]", f.amount)
	}
	if f.sigma <= 0 || f.sigma > maxLumaRadius {
		return nil, fmt.Errorf("unsharp sigma %v not in (0,%v]", f.sigma, maxLumaRadius)
	}
	f.blurred = gocv.NewMat()
	f.out = gocv.NewMat()
	return f, nil
}

// Apply implements Filter.
func (f *Unsharp) Apply(p *yuv.Picture) error {
	return blendBlur(p, f.sigma, -f.amount, &f.blurred, &f.out)
}

// Close implements Filter.
func (f *Unsharp) Close() error {
	f.blurred.Close()
	f.out.Close()
	return nil
}

// blendBlur blurs the luma plane of p with the given sigma and blends
// it back with weight strength: out = (1-strength)*luma +
// strength*blurred. The chroma planes are untouched.
func blendBlur(p *yuv.Picture, sigma, strength float64, blurred, out *gocv.Mat) error {
	w, h := p.PlaneDims(0)
	m, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, p.Plane(0))
	if err != nil {
		return fmt.Errorf("could not wrap luma plane: %w", err)
	}
	defer m.Close()

	gocv.GaussianBlur(m, blurred, image.Pt(0, 0), sigma, sigma, gocv.BorderDefault)
	gocv.AddWeighted(m, 1-strength, *blurred, strength, 0, out)

	res, err := out.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("could not access filtered luma: %w", err)
	}
	copy(p.Plane(0), res)
	return nil
}
