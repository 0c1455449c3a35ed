/*
DESCRIPTION
  mask_test.go provides testing for the foreground alpha mask.

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

import "testing"

func TestAlphaMaskSymmetry(t *testing.T) {
	for _, f := range []int{32, 64, 128, 256} {
		mask := AlphaMask(f)

		c := f / 2
		center := mask[c*f+c]
		for _, v := range mask {
			if v > center {
				t.Fatalf("f=%d: mask not maximal at center: %d > %d", f, v, center)
			}
		}
		if center != 255 {
			t.Errorf("f=%d: center alpha = %d, want clamped 255", f, center)
		}

		// Mirror symmetry about the center on both axes; indices i and
		// f-i are equidistant from f/2.
		for j := 1; j < f; j++ {
			for i := 1; i < f; i++ {
				if mask[j*f+i] != mask[j*f+f-i] {
					t.Fatalf("f=%d: not x-symmetric at (%d,%d)", f, i, j)
				}
				if mask[j*f+i] != mask[(f-j)*f+i] {
					t.Fatalf("f=%d: not y-symmetric at (%d,%d)", f, i, j)
				}
			}
		}
	}
}

func TestAlphaMaskFeathersToTransparent(t *testing.T) {
	f := 128
	mask := AlphaMask(f)
	if corner := mask[0]; corner > 8 {
		t.Errorf("corner alpha = %d, want near transparent", corner)
	}
}
