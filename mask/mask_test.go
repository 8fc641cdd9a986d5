// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mask

import (
	"testing"

	"gopkg.in/check.v1"

	"github.com/FraPria/proovread/cover"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func (s *S) TestParse(c *check.C) {
	t, err := Parse("corrected=true mcr:5,3 hcv:12:0.5 mcr:20,4 length=100")
	c.Assert(err, check.Equals, nil)
	c.Check(t.Masked, check.DeepEquals, []cover.Interval{
		{Start: 5, Len: 3},
		{Start: 20, Len: 4},
	})
	c.Check(t.Haplotype, check.DeepEquals, []string{"12:0.5"})
}

func (s *S) TestParseEmpty(c *check.C) {
	t, err := Parse("")
	c.Assert(err, check.Equals, nil)
	c.Check(t.Masked, check.IsNil)
	c.Check(t.Haplotype, check.IsNil)

	t, err = Parse("plain description without tags")
	c.Assert(err, check.Equals, nil)
	c.Check(t.Masked, check.IsNil)
}

func (s *S) TestParseMalformed(c *check.C) {
	for _, desc := range []string{
		"mcr:5",
		"mcr:a,3",
		"mcr:5,b",
		"mcr:-1,3",
	} {
		_, err := Parse(desc)
		c.Check(err, check.NotNil, check.Commentf("desc %q", desc))
	}
}

func (s *S) TestUnion(c *check.C) {
	tags := []cover.Interval{{Start: 5, Len: 3}}
	windows := []cover.Interval{{Start: 5, Len: 3}, {Start: 20, Len: 4}}
	got := Union(tags, windows)
	c.Check(got, check.DeepEquals, []cover.Interval{
		{Start: 5, Len: 3},
		{Start: 5, Len: 3},
		{Start: 20, Len: 4},
	})

	c.Check(Union(nil, nil), check.IsNil)
	c.Check(Union(tags, nil), check.DeepEquals, tags)
}
