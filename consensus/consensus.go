// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package consensus defines the consensus engine service contract
// used by the pipeline and provides a weighted column-voting engine.
//
// The pipeline depends only on the Engine interface: one call per
// reference, taking the filtered alignment set, the ignore-coordinate
// set and the weighting flags, and returning a Result or a failure
// that aborts the run.
package consensus

import (
	"fmt"

	"github.com/biogo/hts/sam"

	"github.com/FraPria/proovread/align"
	"github.com/FraPria/proovread/cover"
	"github.com/FraPria/proovread/refseq"
)

// Flags selects the weighting behaviour of an engine call.
type Flags struct {
	// UseRefQual includes the reference base as a quality-weighted
	// vote in each column.
	UseRefQual bool

	// QualWeighted weights read contributions by per-base quality
	// instead of counting them uniformly.
	QualWeighted bool
}

// Result is the consensus produced for one reference.
type Result struct {
	// Seq is the corrected sequence.
	Seq []byte

	// Qual holds raw phred confidence values for Seq, or nil when
	// the engine produces none.
	Qual []byte

	// Cigar is the edit script of the corrected sequence relative
	// to the reference.
	Cigar sam.Cigar

	// Trace is optional diagnostic text.
	Trace string
}

// Engine computes one consensus per call. Implementations must skip
// or down-weight contributions from columns inside the ignore set
// and must not retain state between calls.
type Engine interface {
	Consensus(set *align.Set, ref *refseq.Sequence, ignore []cover.Interval, flags Flags) (*Result, error)
}

// EngineError reports a consensus engine failure for one reference.
// Engine failures are fatal to the run.
type EngineError struct {
	Ref string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("consensus: engine failed for %s: %v", e.Ref, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
