// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package filter

import (
	"strings"
	"testing"

	"github.com/biogo/hts/sam"
	"gopkg.in/check.v1"

	"github.com/FraPria/proovread/align"
	"github.com/FraPria/proovread/cover"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func rec(name string, pos, length int, score byte) *sam.Record {
	return &sam.Record{
		Name:  name,
		Pos:   pos,
		Cigar: sam.Cigar{sam.NewCigarOp(sam.CigarMatch, length)},
		Seq:   sam.NewSeq([]byte(strings.Repeat("A", length))),
		Qual:  make([]byte, length),
		AuxFields: []sam.Aux{
			{'A', 'S', 'C', score},
		},
	}
}

func names(recs []*sam.Record) []string {
	var n []string
	for _, r := range recs {
		n = append(n, r.Name)
	}
	return n
}

func (s *S) TestNCScore(c *check.C) {
	set := align.NewSet(
		rec("good", 0, 10, 50), // 5.0 per base
		rec("poor", 0, 10, 4),  // 0.4 per base
		rec("edge", 0, 10, 10), // exactly 1.0
	)
	dropped := NCScore(set, 1.0)
	c.Check(names(dropped), check.DeepEquals, []string{"poor"})
	c.Check(names(set.Records()), check.DeepEquals, []string{"good", "edge"})
}

func (s *S) TestRepeatRegion(c *check.C) {
	// Five identical alignments pile up on [10,20); one anchored
	// alignment extends into low coverage.
	set := align.NewSet(
		rec("rep1", 10, 10, 1),
		rec("rep2", 10, 10, 1),
		rec("rep3", 10, 10, 1),
		rec("rep4", 10, 10, 1),
		rec("rep5", 10, 10, 1),
		rec("anchored", 10, 30, 1),
	)
	dropped := RepeatRegion(set, 50, 5)
	c.Check(names(dropped), check.DeepEquals, []string{"rep1", "rep2", "rep3", "rep4", "rep5"})
	c.Check(names(set.Records()), check.DeepEquals, []string{"anchored"})
}

func (s *S) TestRepeatRegionBelowThreshold(c *check.C) {
	set := align.NewSet(
		rec("a", 0, 20, 1),
		rec("b", 0, 20, 1),
	)
	c.Check(RepeatRegion(set, 20, 5), check.IsNil)
	c.Check(set.Len(), check.Equals, 2)
}

func (s *S) TestContained(c *check.C) {
	set := align.NewSet(
		rec("inner", 5, 10, 1),
		rec("outer", 0, 30, 1),
		rec("tail", 25, 10, 1),
		rec("dup1", 40, 5, 1),
		rec("dup2", 40, 5, 1),
	)
	dropped := Contained(set)
	c.Check(names(dropped), check.DeepEquals, []string{"inner"})
	c.Check(names(set.Records()), check.DeepEquals, []string{"outer", "tail", "dup1", "dup2"})
}

func (s *S) TestOverlapWindows(c *check.C) {
	set := align.NewSet(
		rec("a", 0, 20, 1),
		rec("b", 10, 20, 1),
		rec("c", 15, 20, 1),
	)
	c.Check(OverlapWindows(set, 40, 3), check.DeepEquals, []cover.Interval{{Start: 15, Len: 5}})
	c.Check(OverlapWindows(set, 40, 4), check.IsNil)
}

func (s *S) TestApplyOrder(c *check.C) {
	// The poor-scoring alignment is removed by the NC-score stage
	// before coverage is profiled, so the overlap window reflects
	// only surviving alignments.
	set := align.NewSet(
		rec("poor", 0, 20, 0),
		rec("a", 0, 20, 60),
		rec("b", 0, 20, 60),
		rec("inner", 5, 5, 60),
	)
	windows, dropped := Apply(Config{NCScoreMin: 1, RepeatCoverage: 2, Contig: true}, set, 40)
	c.Check(names(dropped), check.DeepEquals, []string{"poor", "inner"})
	c.Check(windows, check.DeepEquals, []cover.Interval{{Start: 0, Len: 20}})
}

func (s *S) TestApplyNonContig(c *check.C) {
	set := align.NewSet(
		rec("inner", 5, 5, 60),
		rec("outer", 0, 20, 60),
	)
	windows, dropped := Apply(Config{RepeatCoverage: 10}, set, 40)
	c.Check(windows, check.IsNil)
	c.Check(dropped, check.IsNil)
	// Containment is not filtered outside contig mode.
	c.Check(set.Len(), check.Equals, 2)
}
