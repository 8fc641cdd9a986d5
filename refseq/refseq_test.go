// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refseq

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func write(c *check.C, name, data string) string {
	path := filepath.Join(c.MkDir(), name)
	err := os.WriteFile(path, []byte(data), 0o644)
	c.Assert(err, check.Equals, nil)
	return path
}

const (
	fastaData = ">ctg1 corrected=false\nACGTACGT\n>ctg2\nGGCC\n"
	fastqData = "@ctg1 mcr:2,3 hcv:1:0.2\nACGTACGT\n+\nIIIIIIII\n@ctg2\nGGCC\n+\n!!!!\n"
)

func (s *S) TestDetectFormat(c *check.C) {
	f, err := DetectFormat(write(c, "r.fa", fastaData))
	c.Assert(err, check.Equals, nil)
	c.Check(f, check.Equals, FASTA)

	f, err = DetectFormat(write(c, "r.fq", fastqData))
	c.Assert(err, check.Equals, nil)
	c.Check(f, check.Equals, FASTQ)

	_, err = DetectFormat(write(c, "r.txt", "neither fish nor fowl\n"))
	c.Check(errors.Cause(err), check.Equals, ErrUnknownFormat)

	_, err = DetectFormat(write(c, "empty", ""))
	c.Check(errors.Cause(err), check.Equals, ErrUnknownFormat)
}

func (s *S) TestDetectPhred(c *check.C) {
	off, err := DetectPhred(write(c, "sanger.fq", fastqData))
	c.Assert(err, check.Equals, nil)
	c.Check(off, check.Equals, 33)

	old := "@r1\nACGT\n+\nffgh\n"
	off, err = DetectPhred(write(c, "illumina.fq", old))
	c.Assert(err, check.Equals, nil)
	c.Check(off, check.Equals, 64)

	ambiguous := "@r1\nACGT\n+\nJJJJ\n"
	off, err = DetectPhred(write(c, "ambiguous.fq", ambiguous))
	c.Assert(err, check.Equals, nil)
	c.Check(off, check.Equals, 0)
}

func (s *S) TestReadFasta(c *check.C) {
	seqs, err := All(write(c, "r.fa", fastaData))
	c.Assert(err, check.Equals, nil)
	c.Assert(len(seqs), check.Equals, 2)
	c.Check(seqs[0].ID, check.Equals, "ctg1")
	c.Check(seqs[0].Desc, check.Equals, "corrected=false")
	c.Check(seqs[0].Len, check.Equals, 8)
	c.Check(string(seqs[0].Seq), check.Equals, "ACGTACGT")
	c.Check(seqs[0].Qual, check.IsNil)
	c.Check(seqs[1].ID, check.Equals, "ctg2")
}

func (s *S) TestReadFastq(c *check.C) {
	r, err := Open(write(c, "r.fq", fastqData))
	c.Assert(err, check.Equals, nil)
	defer r.Close()
	c.Check(r.Format(), check.Equals, FASTQ)
	c.Check(r.Offset(), check.Equals, 33)

	sq, err := r.Next()
	c.Assert(err, check.Equals, nil)
	c.Check(sq.ID, check.Equals, "ctg1")
	c.Check(sq.Desc, check.Equals, "mcr:2,3 hcv:1:0.2")
	c.Check(string(sq.Seq), check.Equals, "ACGTACGT")
	c.Check(sq.Qual, check.DeepEquals, []byte{40, 40, 40, 40, 40, 40, 40, 40})

	sq, err = r.Next()
	c.Assert(err, check.Equals, nil)
	c.Check(sq.Qual, check.DeepEquals, []byte{0, 0, 0, 0})

	_, err = r.Next()
	c.Check(err, check.Equals, io.EOF)
}

func (s *S) TestIndexed(c *check.C) {
	ix, err := OpenIndexed(write(c, "r.fa", fastaData))
	c.Assert(err, check.Equals, nil)
	defer ix.Close()

	sq, err := ix.Seq("ctg2")
	c.Assert(err, check.Equals, nil)
	c.Check(string(sq.Seq), check.Equals, "GGCC")
	c.Check(sq.Len, check.Equals, 4)

	_, err = ix.Seq("missing")
	c.Check(err, check.NotNil)
}

func (s *S) TestFromHeader(c *check.C) {
	r1, err := sam.NewReference("ctg1", "", "", 100, nil, nil)
	c.Assert(err, check.Equals, nil)
	r2, err := sam.NewReference("ctg2", "", "", 50, nil, nil)
	c.Assert(err, check.Equals, nil)
	h, err := sam.NewHeader(nil, []*sam.Reference{r1, r2})
	c.Assert(err, check.Equals, nil)

	seqs := FromHeader(h)
	c.Assert(len(seqs), check.Equals, 2)
	c.Check(seqs[0].ID, check.Equals, "ctg1")
	c.Check(seqs[0].Len, check.Equals, 100)
	c.Check(seqs[0].Seq, check.IsNil)
	c.Check(seqs[1].Len, check.Equals, 50)
}
