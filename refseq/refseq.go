// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package refseq loads the reference sequences driving consensus
// runs, from FASTA or FASTQ files with format autodetection, or from
// alignment header metadata when no sequence file is available.
package refseq

import (
	"bufio"
	"io"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// A Sequence is one reference driving exactly one pipeline run.
// Immutable once loaded.
type Sequence struct {
	ID   string
	Desc string
	Len  int

	// Seq and Qual are nil for references known only from
	// alignment header metadata. Qual holds raw phred values with
	// the encoding offset removed and is nil for FASTA input.
	Seq  []byte
	Qual []byte
}

// Format identifies a reference file format.
type Format int

const (
	Unknown Format = iota
	FASTA
	FASTQ
)

// ErrUnknownFormat is returned when a reference file starts with
// neither a FASTA nor a FASTQ record marker.
var ErrUnknownFormat = errors.New("refseq: cannot detect reference file format")

// DetectFormat reports the format of the reference file at path from
// its first record marker.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, err
	}
	defer f.Close()
	br := bufio.NewReader(f)
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return Unknown, errors.Wrapf(ErrUnknownFormat, "%s", path)
			}
			return Unknown, err
		}
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '>':
			return FASTA, nil
		case '@':
			return FASTQ, nil
		default:
			return Unknown, errors.Wrapf(ErrUnknownFormat, "%s", path)
		}
	}
}

// DetectPhred scans the quality lines of the FASTQ file at path and
// returns the apparent encoding offset, 33 or 64, or zero when the
// observed byte range is consistent with both.
func DetectPhred(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	const maxRecords = 1000
	sc := bufio.NewScanner(f)
	min := byte(0xff)
	for rec := 0; rec < maxRecords; rec++ {
		// Four-line records: id, sequence, separator, quality.
		var qual string
		ok := true
		for i := 0; i < 4; i++ {
			if !sc.Scan() {
				ok = false
				break
			}
			if i == 3 {
				qual = sc.Text()
			}
		}
		if !ok {
			break
		}
		for i := 0; i < len(qual); i++ {
			if qual[i] < min {
				min = qual[i]
			}
		}
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	// Bytes below ';' only occur with offset 33; a minimum above
	// the Sanger ceiling 'J' only occurs with offset 64. The range
	// between is consistent with both encodings.
	switch {
	case min < 59:
		return 33, nil
	case min >= 75 && min != 0xff:
		return 64, nil
	}
	return 0, nil
}

// Reader yields reference sequences in file order.
type Reader struct {
	f      *os.File
	sc     *seqio.Scanner
	format Format
	offset int
}

// Open opens the reference file at path, detecting its format and,
// for FASTQ, its phred encoding offset. An undetectable format is a
// fatal condition.
func Open(path string) (*Reader, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{format: format}
	if format == FASTQ {
		r.offset, err = DetectPhred(path)
		if err != nil {
			return nil, err
		}
	}
	r.f, err = os.Open(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FASTA:
		r.sc = seqio.NewScanner(fasta.NewReader(r.f, linear.NewSeq("", nil, alphabet.DNAredundant)))
	case FASTQ:
		enc := alphabet.Sanger
		if r.offset == 64 {
			enc = alphabet.Illumina1_3
		}
		r.sc = seqio.NewScanner(fastq.NewReader(r.f, linear.NewQSeq("", nil, alphabet.DNAredundant, enc)))
	}
	return r, nil
}

// Format returns the detected reference file format.
func (r *Reader) Format() Format { return r.format }

// Offset returns the detected phred encoding offset, zero when
// unknown or not applicable.
func (r *Reader) Offset() int { return r.offset }

// Next returns the next reference in file order, or io.EOF.
func (r *Reader) Next() (*Sequence, error) {
	if !r.sc.Next() {
		if err := r.sc.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	switch sq := r.sc.Seq().(type) {
	case *linear.Seq:
		s := &Sequence{ID: sq.ID, Desc: sq.Desc, Len: len(sq.Seq)}
		s.Seq = make([]byte, len(sq.Seq))
		for i, l := range sq.Seq {
			s.Seq[i] = byte(l)
		}
		return s, nil
	case *linear.QSeq:
		s := &Sequence{ID: sq.ID, Desc: sq.Desc, Len: len(sq.Seq)}
		s.Seq = make([]byte, len(sq.Seq))
		s.Qual = make([]byte, len(sq.Seq))
		for i, ql := range sq.Seq {
			s.Seq[i] = byte(ql.L)
			s.Qual[i] = byte(ql.Q)
		}
		return s, nil
	}
	return nil, errors.Errorf("refseq: unexpected sequence type %T", r.sc.Seq())
}

// Close closes the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

// All reads every reference from the file at path.
func All(path string) ([]*Sequence, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var seqs []*Sequence
	for {
		s, err := r.Next()
		if err != nil {
			if err == io.EOF {
				return seqs, nil
			}
			return nil, err
		}
		seqs = append(seqs, s)
	}
}

// FromHeader derives id/length-only references from alignment header
// metadata. Quality-weighted and mask-tag paths are unavailable for
// such references.
func FromHeader(h *sam.Header) []*Sequence {
	refs := h.Refs()
	seqs := make([]*Sequence, 0, len(refs))
	for _, ref := range refs {
		seqs = append(seqs, &Sequence{ID: ref.Name(), Len: ref.Len()})
	}
	return seqs
}
