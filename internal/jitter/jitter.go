// Package jitter perturbs GPS coordinates so that repeated check-ins do
// not submit a byte-identical location. The offset lands in the low-order
// decimal digits, emulating natural GPS drift between readings.
package jitter

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const (
	// The perturbed window spans decimal digits 4 through 8 (a 5-digit
	// slice of the fixed 8-decimal representation).
	windowStart = 4
	windowWidth = 5

	maxOffset = 15000
)

type Jitter struct {
	rnd *rand.Rand
}

func New() *Jitter {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

func NewWithSource(src rand.Source) *Jitter {
	return &Jitter{rnd: rand.New(src)}
}

// Perturb returns v with its low-order decimal digits shifted by a uniform
// random offset. Called independently for latitude and longitude on every
// submission, so two submissions never carry the same decoy position.
//
// The input is first rendered with exactly 8 decimal digits, so short
// inputs are zero-extended rather than rejected.
func (j *Jitter) Perturb(v float64) float64 {
	s := strconv.FormatFloat(v, 'f', 8, 64)
	dot := strings.IndexByte(s, '.')

	lo := dot + windowStart
	hi := lo + windowWidth
	window, err := strconv.Atoi(s[lo:hi])
	if err != nil {
		return v
	}

	window += j.rnd.Intn(2*maxOffset+1) - maxOffset

	// Keep the window within its 5 digits so the splice below cannot
	// shift neighbouring digits.
	if window < 0 {
		window = 0
	} else if window > 99999 {
		window = 99999
	}

	out := s[:lo] + padWindow(window) + s[hi:]
	f, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return v
	}
	return f
}

func padWindow(n int) string {
	s := strconv.Itoa(n)
	for len(s) < windowWidth {
		s = "0" + s
	}
	return s
}
