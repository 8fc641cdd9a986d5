// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package align provides the per-reference alignment set consumed by
// the consensus pipeline, together with record scoring and intake
// admission policies.
package align

import (
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"

	"github.com/FraPria/proovread/cover"
)

var asTag = sam.NewTag("AS")

// ErrMissingSeq and ErrMissingQual are returned for alignment
// records lacking sequence or quality data. Such records indicate a
// malformed source stream.
var (
	ErrMissingSeq  = errors.New("align: alignment record missing sequence")
	ErrMissingQual = errors.New("align: alignment record missing quality")
)

// ErrBadCoordinates is returned by Intake.Add for alignment records
// placed outside the reference.
var ErrBadCoordinates = errors.New("align: alignment outside reference")

// Score returns the aligner score of r from its AS aux field, falling
// back to the mapping quality when the tag is absent.
func Score(r *sam.Record) int {
	aux, ok := r.Tag(asTag[:])
	if !ok {
		return int(r.MapQ)
	}
	switch v := aux.Value().(type) {
	case int8:
		return int(v)
	case uint8:
		return int(v)
	case int16:
		return int(v)
	case uint16:
		return int(v)
	case int32:
		return int(v)
	case uint32:
		return int(v)
	case int:
		return v
	case uint:
		return int(v)
	}
	return int(r.MapQ)
}

// NCScore returns the normalized consensus-contribution score of r,
// its aligner score divided by its aligned read length.
func NCScore(r *sam.Record) float64 {
	n := r.Seq.Length
	if n == 0 {
		return 0
	}
	return float64(Score(r)) / float64(n)
}

// MaxInsertion returns the length of the longest insertion operation
// in the edit script of r.
func MaxInsertion(r *sam.Record) int {
	var max int
	for _, co := range r.Cigar {
		if co.Type() == sam.CigarInsertion && co.Len() > max {
			max = co.Len()
		}
	}
	return max
}

// Validate checks that r carries the data required for consensus
// calling. A record without sequence is a fatal stream defect.
func Validate(r *sam.Record) error {
	if r.Seq.Length == 0 {
		return errors.Wrapf(ErrMissingSeq, "record %q", r.Name)
	}
	if len(r.Qual) != r.Seq.Length || missingQual(r.Qual) {
		return errors.Wrapf(ErrMissingQual, "record %q", r.Name)
	}
	return nil
}

// missingQual reports whether q is the parsed form of an absent
// quality field, a run of 0xff sentinel bytes.
func missingQual(q []byte) bool {
	for _, v := range q {
		if v != 0xff {
			return false
		}
	}
	return len(q) != 0
}

// Set is the ordered collection of alignments against one reference.
// Order is arrival order; the filter cascade mutates the set in
// place. A Set is never shared across references.
type Set struct {
	recs []*sam.Record
}

// NewSet returns a Set holding the given records in order.
func NewSet(recs ...*sam.Record) *Set {
	return &Set{recs: recs}
}

// Len returns the number of alignments in the set.
func (s *Set) Len() int { return len(s.recs) }

// Records returns the alignments in arrival order. The returned
// slice is owned by the set.
func (s *Set) Records() []*sam.Record { return s.recs }

// Keep retains only alignments for which keep returns true,
// preserving order, and returns the dropped records.
func (s *Set) Keep(keep func(*sam.Record) bool) []*sam.Record {
	var dropped []*sam.Record
	kept := s.recs[:0]
	for _, r := range s.recs {
		if keep(r) {
			kept = append(kept, r)
		} else {
			dropped = append(dropped, r)
		}
	}
	for i := len(kept); i < len(s.recs); i++ {
		s.recs[i] = nil
	}
	s.recs = kept
	return dropped
}

// Coverage returns the depth profile of the set over a reference of
// length n. Only reference-consuming edit operations contribute.
func (s *Set) Coverage(n int) cover.Profile {
	p := cover.New(n)
	for _, r := range s.recs {
		p.Add(r.Start(), r.End())
	}
	return p
}
