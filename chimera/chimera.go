// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chimera flags candidate chimeric breakpoints in a
// processed reference by comparing local alignment support across
// fixed-size column bins. A breakpoint shows up as a bin where many
// alignments start or end while few span it.
package chimera

import (
	"github.com/FraPria/proovread/align"
	"github.com/FraPria/proovread/cover"
	"github.com/FraPria/proovread/remap"
)

// Record is one candidate breakpoint in corrected-sequence
// coordinates.
type Record struct {
	Ref   string
	Start int
	End   int
	Score float64
}

// Candidate is one breakpoint range in column coordinates.
type Candidate struct {
	cover.Interval
	Score float64
}

// Detector finds breakpoint candidates with a local-score comparison
// over BinSize-wide column bins.
type Detector struct {
	// BinSize is the width of the comparison bins.
	BinSize int

	// MinScore is the minimum breakpoint score, the fraction of
	// local alignments broken at the bin, for a bin to be reported.
	MinScore float64
}

// Detect returns candidate breakpoint column ranges for a reference
// of length refLen, in ascending order. Adjacent qualifying bins are
// merged into one candidate scored by the highest bin.
func (d Detector) Detect(set *align.Set, refLen int) []Candidate {
	if d.BinSize <= 0 || refLen <= d.BinSize {
		return nil
	}
	nbins := (refLen + d.BinSize - 1) / d.BinSize
	starts := make([]int, nbins)
	ends := make([]int, nbins)
	through := make([]int, nbins)

	for _, r := range set.Records() {
		rs, re := r.Start(), r.End()
		if re <= rs {
			continue
		}
		sb := clampBin(rs/d.BinSize, nbins)
		eb := clampBin((re-1)/d.BinSize, nbins)
		starts[sb]++
		ends[eb]++
		// Spanning requires extending beyond both bin edges.
		for b := sb + 1; b < eb; b++ {
			through[b]++
		}
	}

	var (
		cands []Candidate
		open  bool
		cur   Candidate
	)
	// The outermost bins see alignment starts and ends in the
	// normal course of coverage and are never breakpoints.
	for b := 1; b < nbins-1; b++ {
		broken := starts[b] + ends[b]
		total := broken + through[b]
		if total == 0 {
			closeCandidate(&cands, &cur, &open)
			continue
		}
		score := float64(broken) / float64(total)
		if score < d.MinScore {
			closeCandidate(&cands, &cur, &open)
			continue
		}
		binStart := b * d.BinSize
		binEnd := binStart + d.BinSize
		if binEnd > refLen {
			binEnd = refLen
		}
		if !open {
			open = true
			cur = Candidate{
				Interval: cover.Interval{Start: binStart, Len: binEnd - binStart},
				Score:    score,
			}
			continue
		}
		cur.Len = binEnd - cur.Start
		if score > cur.Score {
			cur.Score = score
		}
	}
	closeCandidate(&cands, &cur, &open)
	return cands
}

func clampBin(b, nbins int) int {
	if b < 0 {
		return 0
	}
	if b >= nbins {
		return nbins - 1
	}
	return b
}

func closeCandidate(cands *[]Candidate, cur *Candidate, open *bool) {
	if *open {
		*cands = append(*cands, *cur)
		*open = false
	}
}

// Remap translates candidates into corrected-sequence coordinates in
// a single ascending pass over the consensus edit script and emits
// one Record per candidate.
func Remap(ref string, cands []Candidate, cur *remap.Cursor) []Record {
	if len(cands) == 0 {
		return nil
	}
	recs := make([]Record, 0, len(cands))
	for _, cand := range cands {
		recs = append(recs, Record{
			Ref:   ref,
			Start: cur.Map(cand.Start),
			End:   cur.Map(cand.End()),
			Score: cand.Score,
		})
	}
	return recs
}
