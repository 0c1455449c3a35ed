/*
DESCRIPTION
  crop.go provides the foveation cropper; a clipped, macroblock-friendly
  copy of a square region of a source picture centered on a gaze point.

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

// EvenDim rounds n up to the next even value. Crop dimensions and crop
// origins must be even so the subsampled chroma planes stay
// integer-aligned.
func EvenDim(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}

// CropTo copies a dst.Width()×dst.Height() region of src, centered on
// the gaze point (pX, pY) in source pixels, into dst.
//
// The crop origin is adjusted up by one on either axis where needed to
// keep it even. Where the centered rectangle extends past a source
// edge the copy is clipped per destination row: rows wholly outside
// the source are skipped, and within a partially visible row only the
// in-range columns are copied, leaving the remaining destination bytes
// untouched. No scaling or mirroring is performed.
func CropTo(src *Picture, pX, pY int, dst *Picture) {
	top := pY - dst.height/2
	if top%2 != 0 {
		top++
	}
	left := pX - dst.width/2
	if left%2 != 0 {
		left++
	}

	for i := range dst.planes {
		sw, sh := src.PlaneDims(i)
		dw, dh := dst.PlaneDims(i)
		t := top / subHeight[i]
		l := left / subWidth[i]

		for row := 0; row < dh; row++ {
			sr := t + row
			if sr < 0 || sr >= sh {
				continue
			}

			// Clip the column range of this row to the source.
			sc, dc, n := l, 0, dw
			if sc < 0 {
				dc = -sc
				n -= dc
				sc = 0
			}
			if sc+n > sw {
				n = sw - sc
			}
			if n <= 0 {
				continue
			}

			copy(dst.planes[i][row*dw+dc:row*dw+dc+n], src.planes[i][sr*sw+sc:sr*sw+sc+n])
		}
	}
}
