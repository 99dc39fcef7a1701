// SPDX-License-Identifier: MIT
/*
Package bitint provides power-of-two helpers for buffer and FFT sizing.

All functions are O(1), allocation free and safe to call from the audio
path.

NextPowerOfTwo relies on bits.Len of (n-1): for an exact power of two the
subtraction clears the top bit, so the value is returned unchanged instead
of being doubled.

	n = 8:  8-1 = 0b0111, Len = 3, 1<<3 = 8
	n = 9:  9-1 = 0b1000, Len = 4, 1<<4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= n. Values <= 0
// return 1.
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
