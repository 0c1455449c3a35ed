/*
DESCRIPTION
  mask.go provides the precomputed 2D-Gaussian alpha mask blended over
  the foreground patch so the high quality disc feathers into the
  background.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package client

import "math"

// Gaussian mask shape parameters; the peak is scaled so the disc is
// fully opaque well past the center before feathering, and the
// standard deviation is a fifth of the patch side.
const (
	maskScale      = 896.0
	maskSigmaDivisor = 5.0
)

// AlphaMask returns the f² alpha bytes of a 2D Gaussian centered in an
// f×f patch: min(255, round(896·exp(-((i-f/2)² + (j-f/2)²)/(2·(f/5)²)))).
func AlphaMask(f int) []byte {
	mask := make([]byte, f*f)
	sigma := float64(f) / maskSigmaDivisor
	denom := 2 * sigma * sigma
	for j := 0; j < f; j++ {
		for i := 0; i < f; i++ {
			di := float64(i - f/2)
			dj := float64(j - f/2)
			v := math.Round(maskScale * math.Exp(-(di*di+dj*dj)/denom))
			if v > 255 {
				v = 255
			}
			mask[j*f+i] = byte(v)
		}
	}
	return mask
}
