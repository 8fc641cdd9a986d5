// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package filter implements the cascade applied to a reference's
// alignment set before consensus calling. Stages run in a fixed
// order, each independently toggleable: NC-score, repeat-region,
// contained-alignment and overlap-window detection. The last two run
// only in contig mode.
package filter

import (
	"sort"

	"github.com/biogo/hts/sam"

	"github.com/FraPria/proovread/align"
	"github.com/FraPria/proovread/cover"
)

// Config holds the cascade thresholds. Zero values disable the
// corresponding stage.
type Config struct {
	// NCScoreMin drops alignments whose normalized score is below
	// this minimum.
	NCScoreMin float64

	// RepeatCoverage is the depth above which columns are treated
	// as collapsed repeats. It gates both the repeat-region filter
	// and overlap-window detection.
	RepeatCoverage int

	// Contig enables the contained-alignment and overlap-window
	// stages.
	Contig bool
}

// NCScore drops alignments from s whose normalized score is below
// min, returning the dropped records.
func NCScore(s *align.Set, min float64) []*sam.Record {
	return s.Keep(func(r *sam.Record) bool { return align.NCScore(r) >= min })
}

// RepeatRegion drops alignments that lie wholly in columns whose
// depth exceeds max, returning the dropped records. An alignment
// that extends beyond the inflated region anchors it and is kept.
func RepeatRegion(s *align.Set, refLen, max int) []*sam.Record {
	p := s.Coverage(refLen)
	return s.Keep(func(r *sam.Record) bool {
		start, end := r.Start(), r.End()
		if start < 0 {
			start = 0
		}
		if end > len(p) {
			end = len(p)
		}
		for i := start; i < end; i++ {
			if int(p[i]) <= max {
				return true
			}
		}
		return end <= start
	})
}

// Contained drops alignments fully spanned by another, strictly
// longer alignment, returning the dropped records. Alignments of
// equal span are all kept.
func Contained(s *align.Set) []*sam.Record {
	recs := s.Records()
	if len(recs) < 2 {
		return nil
	}
	// Sweep in start order, longest first at equal starts. A record
	// is contained when an earlier-starting, longer record reaches
	// at least as far.
	order := make([]int, len(recs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := recs[order[i]], recs[order[j]]
		if a.Start() != b.Start() {
			return a.Start() < b.Start()
		}
		return span(a) > span(b)
	})
	contained := make([]bool, len(recs))
	maxEnd := -1
	maxSpan := -1
	for _, i := range order {
		r := recs[i]
		if r.End() <= maxEnd && span(r) < maxSpan {
			contained[i] = true
			continue
		}
		if r.End() > maxEnd {
			maxEnd = r.End()
			maxSpan = span(r)
		}
	}
	idx := 0
	return s.Keep(func(*sam.Record) bool {
		keep := !contained[idx]
		idx++
		return keep
	})
}

// OverlapWindows recomputes the depth profile of s and returns the
// maximal column runs with depth at least min. These are regions of
// ambiguous contig overlap to be masked from consensus voting rather
// than called directly.
func OverlapWindows(s *align.Set, refLen, min int) []cover.Interval {
	return s.Coverage(refLen).RunsAtLeast(int32(min))
}

func span(r *sam.Record) int { return r.End() - r.Start() }

// Apply runs the cascade over s in order and returns the overlap
// windows to mask and the records dropped by the filtering stages.
func Apply(cfg Config, s *align.Set, refLen int) (windows []cover.Interval, dropped []*sam.Record) {
	if cfg.NCScoreMin > 0 {
		dropped = append(dropped, NCScore(s, cfg.NCScoreMin)...)
	}
	if cfg.RepeatCoverage > 0 {
		dropped = append(dropped, RepeatRegion(s, refLen, cfg.RepeatCoverage)...)
	}
	if cfg.Contig {
		dropped = append(dropped, Contained(s)...)
		if cfg.RepeatCoverage > 0 {
			windows = OverlapWindows(s, refLen, cfg.RepeatCoverage)
		}
	}
	return windows, dropped
}
