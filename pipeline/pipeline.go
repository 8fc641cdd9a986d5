// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline drives per-reference consensus assembly: for each
// reference in natural order it streams alignments from the source,
// applies the intake policy and filter cascade, builds the ignore
// set, invokes the consensus engine and detects chimeric
// breakpoints, emitting results in reference order.
package pipeline

import (
	"github.com/pkg/errors"
)

// Config is the run-wide configuration, constructed once at startup
// and passed by pointer into every stage.
type Config struct {
	// Contig selects contig (utg) mode: unconditional intake and
	// the contained/overlap-window filter stages.
	Contig bool

	// CoverageCap is the per-bin alignment cap in binned mode.
	CoverageCap int

	// BinSize is the reference bin width used by binned intake and
	// by local score comparison in chimera detection.
	BinSize int

	// NCScoreMin is the minimum normalized consensus-contribution
	// score; zero disables the filter.
	NCScoreMin float64

	// RepeatCoverage is the repeat-coverage threshold; zero
	// disables the repeat filter and overlap-window detection.
	RepeatCoverage int

	// MaxInsertLen rejects alignments with longer insertions;
	// zero disables the check.
	MaxInsertLen int

	// QualWeighted and UseRefQual are the consensus weighting
	// flags.
	QualWeighted bool
	UseRefQual   bool

	// IgnoreMaskTags disables descriptor mask-tag parsing.
	IgnoreMaskTags bool

	// Chimera enables breakpoint detection with the given minimum
	// score.
	Chimera         bool
	ChimeraMinScore float64

	// MaxRefs limits the number of references processed; zero
	// means all.
	MaxRefs int

	// Threads bounds parallelism across references; zero means
	// GOMAXPROCS.
	Threads int

	// PhredOffset is the explicitly configured quality encoding
	// offset; zero means take whatever the reference source
	// detects.
	PhredOffset int

	// Append opens all sinks in append mode instead of truncating.
	Append bool

	// Debug gates the optional trace and filtered-alignment
	// artifacts.
	Debug bool
}

// ErrPhredMismatch is returned when the detected quality encoding
// contradicts the configured one.
var ErrPhredMismatch = errors.New("pipeline: phred offset mismatch")

// ErrPhredUnknown is returned when a quality-weighted run cannot
// establish the quality encoding.
var ErrPhredUnknown = errors.New("pipeline: phred offset unknown")

// ResolvePhred reconciles the configured offset with the offset
// detected from the reference source. A contradiction is fatal; an
// unknown offset is fatal only when reference-quality weighting
// needs it. Read qualities carry no offset once parsed from the
// archive, so they are unaffected.
func (c *Config) ResolvePhred(detected int) (int, error) {
	switch {
	case c.PhredOffset != 0 && detected != 0 && c.PhredOffset != detected:
		return 0, errors.Wrapf(ErrPhredMismatch, "configured %d, detected %d", c.PhredOffset, detected)
	case c.PhredOffset != 0:
		return c.PhredOffset, nil
	case detected != 0:
		return detected, nil
	case c.QualWeighted && c.UseRefQual:
		return 0, ErrPhredUnknown
	}
	return 0, nil
}
