// SPDX-License-Identifier: MIT

// Package bitint provides the power-of-two helpers used to size analyser
// buffers. FFT sizes and ring capacities must be powers of two so that bin
// counts divide evenly and ring indices can be masked instead of wrapped with
// a modulo.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Sizes <= 0
// return 1.
//
// The subtraction handles exact powers: for 8, bits.Len(7) = 3 and 1<<3 = 8.
// Without it bits.Len(8) = 4 and the input would be doubled.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has exactly one bit set, so clearing the lowest set bit leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
