// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chimera

import (
	"strings"
	"testing"

	"github.com/biogo/hts/sam"
	"gopkg.in/check.v1"

	"github.com/FraPria/proovread/align"
	"github.com/FraPria/proovread/cover"
	"github.com/FraPria/proovread/remap"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func rec(pos, length int) *sam.Record {
	return &sam.Record{
		Name:  "r",
		Pos:   pos,
		Cigar: sam.Cigar{sam.NewCigarOp(sam.CigarMatch, length)},
		Seq:   sam.NewSeq([]byte(strings.Repeat("A", length))),
	}
}

func (s *S) TestDetectCleanBreak(c *check.C) {
	// Three alignments end at column 50 and three start there;
	// nothing spans the junction.
	set := align.NewSet(
		rec(0, 50), rec(0, 50), rec(0, 50),
		rec(50, 50), rec(50, 50), rec(50, 50),
	)
	d := Detector{BinSize: 10, MinScore: 0.8}
	cands := d.Detect(set, 100)
	c.Assert(len(cands), check.Equals, 1)
	c.Check(cands[0].Interval, check.DeepEquals, cover.Interval{Start: 40, Len: 20})
	c.Check(cands[0].Score, check.Equals, 1.0)
}

func (s *S) TestDetectSpannedJunction(c *check.C) {
	// The same junction backed by plenty of spanning alignments is
	// not a breakpoint.
	recs := []*sam.Record{
		rec(0, 50), rec(0, 50), rec(0, 50),
		rec(50, 50), rec(50, 50), rec(50, 50),
	}
	for i := 0; i < 10; i++ {
		recs = append(recs, rec(0, 100))
	}
	d := Detector{BinSize: 10, MinScore: 0.8}
	c.Check(d.Detect(align.NewSet(recs...), 100), check.IsNil)
}

func (s *S) TestDetectUniformTiling(c *check.C) {
	var recs []*sam.Record
	for pos := 0; pos <= 70; pos += 5 {
		recs = append(recs, rec(pos, 30))
	}
	d := Detector{BinSize: 10, MinScore: 0.8}
	c.Check(d.Detect(align.NewSet(recs...), 100), check.IsNil)
}

func (s *S) TestDetectShortReference(c *check.C) {
	d := Detector{BinSize: 100, MinScore: 0.5}
	c.Check(d.Detect(align.NewSet(rec(0, 50)), 100), check.IsNil)
}

func (s *S) TestRemap(c *check.C) {
	cands := []Candidate{
		{Interval: cover.Interval{Start: 40, Len: 20}, Score: 0.9},
		{Interval: cover.Interval{Start: 80, Len: 10}, Score: 0.85},
	}
	// A 5-column deletion before column 40 shifts all corrected
	// coordinates right by 5.
	cur := remap.NewCursor(sam.Cigar{
		sam.NewCigarOp(sam.CigarMatch, 30),
		sam.NewCigarOp(sam.CigarDeletion, 5),
		sam.NewCigarOp(sam.CigarMatch, 70),
	})
	recs := Remap("ctg1", cands, cur)
	c.Check(recs, check.DeepEquals, []Record{
		{Ref: "ctg1", Start: 45, End: 65, Score: 0.9},
		{Ref: "ctg1", Start: 85, End: 95, Score: 0.85},
	})

	c.Check(Remap("ctg1", nil, cur), check.IsNil)
}
