// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remap

import (
	"testing"

	"github.com/biogo/hts/sam"
	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func ops(ops ...sam.CigarOp) sam.Cigar { return sam.Cigar(ops) }

func (s *S) TestIdentity(c *check.C) {
	cur := NewCursor(ops(sam.NewCigarOp(sam.CigarMatch, 100)))
	for _, col := range []int{0, 1, 10, 50, 99, 100} {
		c.Check(cur.Map(col), check.Equals, col)
	}
}

func (s *S) TestDeletionShift(c *check.C) {
	// 80M2D3M: columns before the deletion are unshifted, columns
	// after it shift right by the deleted length.
	cur := NewCursor(ops(
		sam.NewCigarOp(sam.CigarMatch, 80),
		sam.NewCigarOp(sam.CigarDeletion, 2),
		sam.NewCigarOp(sam.CigarMatch, 3),
	))
	c.Check(cur.Map(10), check.Equals, 10)
	c.Check(cur.Map(85), check.Equals, 87)
}

func (s *S) TestInsertionShift(c *check.C) {
	// 10M3I10M: columns beyond the insertion shift left.
	cur := NewCursor(ops(
		sam.NewCigarOp(sam.CigarMatch, 10),
		sam.NewCigarOp(sam.CigarInsertion, 3),
		sam.NewCigarOp(sam.CigarMatch, 10),
	))
	c.Check(cur.Map(5), check.Equals, 5)
	c.Check(cur.Map(20), check.Equals, 17)
}

func (s *S) TestMonotonic(c *check.C) {
	cur := NewCursor(ops(
		sam.NewCigarOp(sam.CigarMatch, 10),
		sam.NewCigarOp(sam.CigarInsertion, 2),
		sam.NewCigarOp(sam.CigarMatch, 10),
		sam.NewCigarOp(sam.CigarDeletion, 5),
		sam.NewCigarOp(sam.CigarMatch, 10),
		sam.NewCigarOp(sam.CigarInsertion, 1),
		sam.NewCigarOp(sam.CigarMatch, 10),
	))
	prev := cur.Map(0)
	for col := 1; col <= 45; col++ {
		got := cur.Map(col)
		if got < prev {
			c.Fatalf("corrected coordinate decreased: Map(%d) = %d after %d", col, got, prev)
		}
		prev = got
	}
}

func (s *S) TestMixedOps(c *check.C) {
	// Equal and mismatch operations consume both sequences and
	// count as matches for the coordinate walk.
	cur := NewCursor(ops(
		sam.NewCigarOp(sam.CigarEqual, 5),
		sam.NewCigarOp(sam.CigarMismatch, 5),
		sam.NewCigarOp(sam.CigarDeletion, 4),
		sam.NewCigarOp(sam.CigarEqual, 5),
	))
	c.Check(cur.Map(3), check.Equals, 3)
	c.Check(cur.Map(12), check.Equals, 16)
}
