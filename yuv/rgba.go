/*
DESCRIPTION
  rgba.go provides conversion of a planar YUV 4:2:0 picture to packed
  RGBA, used when uploading the decoded foreground patch to its blended
  texture.

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

package yuv

import "fmt"

// ToRGBA converts p to packed RGBA bytes using the BT.601 limited
// range transform. dst must have capacity for 4*w*h bytes. The alpha
// byte of every pixel is set to opaque; callers blending the result
// overwrite alpha afterwards.
func ToRGBA(p *Picture, dst []byte) error {
	w, h := p.width, p.height
	if len(dst) < 4*w*h {
		return fmt.Errorf("destination too small: %d < %d", len(dst), 4*w*h)
	}

	y := p.planes[0]
	u := p.planes[1]
	v := p.planes[2]
	cs := p.Stride(1)

	for row := 0; row < h; row++ {
		yo := row * w
		co := (row / 2) * cs
		for col := 0; col < w; col++ {
			c := 298 * (int(y[yo+col]) - 16)
			d := int(u[co+col/2]) - 128
			e := int(v[co+col/2]) - 128

			o := 4 * (yo + col)
			dst[o] = clip((c + 409*e + 128) >> 8)
			dst[o+1] = clip((c - 100*d - 208*e + 128) >> 8)
			dst[o+2] = clip((c + 516*d + 128) >> 8)
			dst[o+3] = 0xff
		}
	}
	return nil
}

func clip(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
