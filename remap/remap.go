// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package remap translates reference column coordinates into
// corrected-sequence coordinates by walking a consensus edit script.
package remap

import "github.com/biogo/hts/sam"

// Cursor maps column coordinates along the original reference into
// coordinates along the corrected sequence described by a consensus
// edit script. The cursor advances monotonically and never rewinds:
// callers must request coordinates in non-decreasing order, matching
// the ascending order in which breakpoint candidates are produced.
// This keeps the total cost of all lookups for one reference linear
// in the length of the edit script.
type Cursor struct {
	ops sam.Cigar
	i   int

	matched  int
	inserted int
	deleted  int
	last     int
}

// NewCursor returns a Cursor over the given consensus edit script.
func NewCursor(ops sam.Cigar) *Cursor {
	return &Cursor{ops: ops}
}

// Map returns the corrected-sequence coordinate for column c. The
// offset applied is the difference between deleted and inserted
// length accumulated up to the first point where matched plus
// inserted length reaches c. Results are clamped non-decreasing, so
// columns interior to an insertion collapse onto the preceding
// corrected position.
//
// Map must be called with non-decreasing values of c. A call with a
// smaller c than a previous call does not rewind the cursor; it is
// answered with the offset already accumulated.
func (cur *Cursor) Map(c int) int {
	for cur.i < len(cur.ops) && cur.matched+cur.inserted < c {
		co := cur.ops[cur.i]
		switch co.Type() {
		case sam.CigarInsertion:
			cur.inserted += co.Len()
		case sam.CigarDeletion, sam.CigarSkipped:
			cur.deleted += co.Len()
		default:
			con := co.Type().Consumes()
			if con.Query == 1 && con.Reference == 1 {
				cur.matched += co.Len()
			}
		}
		cur.i++
	}
	mapped := c + cur.deleted - cur.inserted
	if mapped < cur.last {
		mapped = cur.last
	}
	cur.last = mapped
	return mapped
}
