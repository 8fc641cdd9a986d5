// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// Mode selects the intake admission policy.
type Mode int

const (
	// Binned admits alignments up to a per-bin coverage cap,
	// evicting lower-scoring alignments in favor of higher-scoring
	// arrivals.
	Binned Mode = iota

	// Contig admits every alignment unconditionally. It is used
	// when the sequences being polished are few long contigs, so
	// coverage capping would discard informative alignments.
	Contig
)

// Intake admits alignment records for one reference according to the
// configured mode, building the reference's Set.
type Intake struct {
	mode    Mode
	refLen  int
	binSize int
	cap     int
	maxIns  int

	set  *Set
	bins []int
}

// NewIntake returns an Intake for a reference of length refLen. In
// Binned mode at most cap alignments are kept per binSize-wide
// reference bin. Records with an insertion longer than maxIns are
// rejected; maxIns <= 0 disables the check.
func NewIntake(mode Mode, refLen, binSize, cap, maxIns int) *Intake {
	in := &Intake{
		mode:    mode,
		refLen:  refLen,
		binSize: binSize,
		cap:     cap,
		maxIns:  maxIns,
		set:     NewSet(),
	}
	if mode == Binned && binSize > 0 {
		in.bins = make([]int, (refLen+binSize-1)/binSize)
	}
	return in
}

// Add offers r to the intake. Evicted lower-scoring records and, when
// r itself is not admitted, r are returned as rejected. A malformed
// record yields a non-nil error and must abort the run.
func (in *Intake) Add(r *sam.Record) (rejected []*sam.Record, err error) {
	if err := Validate(r); err != nil {
		return nil, err
	}
	if r.Start() < 0 || r.Start() >= in.refLen {
		return nil, errors.Wrapf(ErrBadCoordinates, "record %q at %d on length %d reference",
			r.Name, r.Start(), in.refLen)
	}
	if in.maxIns > 0 && MaxInsertion(r) > in.maxIns {
		return []*sam.Record{r}, nil
	}
	if in.mode == Contig || in.bins == nil {
		in.set.recs = append(in.set.recs, r)
		return nil, nil
	}

	b0, b1 := in.binSpan(r)
	for {
		full := -1
		for b := b0; b <= b1; b++ {
			if in.bins[b] >= in.cap {
				full = b
				break
			}
		}
		if full < 0 {
			break
		}
		victim := in.lowestIn(full)
		if victim < 0 || Score(in.set.recs[victim]) >= Score(r) {
			return []*sam.Record{r}, nil
		}
		rejected = append(rejected, in.evict(victim))
	}
	for b := b0; b <= b1; b++ {
		in.bins[b]++
	}
	in.set.recs = append(in.set.recs, r)
	return rejected, nil
}

// Set returns the admitted alignments. The intake must not be used
// after Set is called.
func (in *Intake) Set() *Set {
	s := in.set
	in.set = nil
	in.bins = nil
	return s
}

func (in *Intake) binSpan(r *sam.Record) (b0, b1 int) {
	b0 = r.Start() / in.binSize
	b1 = (r.End() - 1) / in.binSize
	if b0 < 0 {
		b0 = 0
	}
	if b1 >= len(in.bins) {
		b1 = len(in.bins) - 1
	}
	if b1 < b0 {
		b1 = b0
	}
	return b0, b1
}

// lowestIn returns the index in the set of the lowest-scoring record
// overlapping bin b, or -1 if none does.
func (in *Intake) lowestIn(b int) int {
	low := -1
	for i, r := range in.set.recs {
		rb0, rb1 := in.binSpan(r)
		if b < rb0 || rb1 < b {
			continue
		}
		if low < 0 || Score(r) < Score(in.set.recs[low]) {
			low = i
		}
	}
	return low
}

func (in *Intake) evict(i int) *sam.Record {
	r := in.set.recs[i]
	b0, b1 := in.binSpan(r)
	for b := b0; b <= b1; b++ {
		in.bins[b]--
	}
	in.set.recs = append(in.set.recs[:i], in.set.recs[i+1:]...)
	return r
}
