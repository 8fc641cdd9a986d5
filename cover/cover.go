// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cover provides per-column alignment depth profiles over a
// reference and detection of maximal column runs satisfying a depth
// predicate.
package cover

// Interval is a half-open run of reference columns starting at Start
// and extending for Len columns.
type Interval struct {
	Start int
	Len   int
}

// End returns the column immediately after the interval.
func (iv Interval) End() int { return iv.Start + iv.Len }

// Contains reports whether column c lies within the interval.
func (iv Interval) Contains(c int) bool { return iv.Start <= c && c < iv.End() }

// Profile is the alignment depth for each column of a reference.
type Profile []int32

// New returns a zeroed profile for a reference of length n.
func New(n int) Profile { return make(Profile, n) }

// Add increments the depth of columns in the half-open range
// [start, end), clipped to the profile.
func (p Profile) Add(start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(p) {
		end = len(p)
	}
	for i := start; i < end; i++ {
		p[i]++
	}
}

// Max returns the highest depth in the profile, zero for an empty
// profile.
func (p Profile) Max() int32 {
	var max int32
	for _, d := range p {
		if d > max {
			max = d
		}
	}
	return max
}

// RunsAtLeast returns the maximal runs of columns whose depth is at
// least min, in ascending order. The scan is a single left-to-right
// pass: a run opens on the first column satisfying the predicate and
// closes on the first that does not, or at the end of the profile.
func (p Profile) RunsAtLeast(min int32) []Interval {
	var (
		runs  []Interval
		open  bool
		start int
	)
	for i, d := range p {
		switch {
		case d >= min && !open:
			open = true
			start = i
		case d < min && open:
			open = false
			runs = append(runs, Interval{Start: start, Len: i - start})
		}
	}
	if open {
		runs = append(runs, Interval{Start: start, Len: len(p) - start})
	}
	return runs
}
