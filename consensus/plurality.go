// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package consensus

import (
	"fmt"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"

	"github.com/FraPria/proovread/align"
	"github.com/FraPria/proovread/cover"
	"github.com/FraPria/proovread/refseq"
)

// Plurality is a per-column weighted plurality voting engine.
// Columns inside the ignore set keep the reference base and never
// receive read votes. A column whose deletion weight exceeds half its
// total weight is removed; an insertion point backed by more than
// half the local weight gains the most common inserted sequence.
type Plurality struct{}

const maxQual = 40

var _ Engine = Plurality{}

// Consensus implements Engine.
func (Plurality) Consensus(set *align.Set, ref *refseq.Sequence, ignore []cover.Interval, flags Flags) (*Result, error) {
	n := ref.Len
	if n <= 0 {
		return nil, errors.Errorf("consensus: reference %s has no length", ref.ID)
	}

	ignored := make([]bool, n)
	for _, iv := range ignore {
		for i := iv.Start; i < iv.End() && i < n; i++ {
			if i >= 0 {
				ignored[i] = true
			}
		}
	}

	votes := make([][5]float64, n) // A, C, G, T, deletion
	weight := make([]float64, n)
	ins := make(map[int]map[string]float64)

	for _, r := range set.Records() {
		tallyRecord(r, votes, weight, ins, ignored, flags)
	}
	if flags.UseRefQual && ref.Seq != nil {
		for col := 0; col < n; col++ {
			if ignored[col] {
				continue
			}
			bi := baseIndex(ref.Seq[col])
			if bi < 0 {
				continue
			}
			w := 1.0
			if flags.QualWeighted && ref.Qual != nil {
				w = float64(ref.Qual[col]) + 1
			}
			votes[col][bi] += w
			weight[col] += w
		}
	}

	var (
		seq, qual []byte
		ops       opBuilder
		called    int
		deleted   int
		inserted  int
	)
	for col := 0; col <= n; col++ {
		if iv, ok := ins[col]; ok && col > 0 && col < n && !ignored[col] && !ignored[col-1] {
			local := (weight[col-1] + weight[col]) / 2
			best, bw := bestInsertion(iv)
			if bw*2 > local && local > 0 {
				q := scaleQual(bw, local)
				for i := 0; i < len(best); i++ {
					seq = append(seq, best[i])
					qual = append(qual, q)
				}
				ops.add(sam.CigarInsertion, len(best))
				inserted += len(best)
			}
		}
		if col == n {
			break
		}

		if ignored[col] || weight[col] == 0 {
			seq = append(seq, refBase(ref, col))
			qual = append(qual, refQual(ref, col))
			ops.add(sam.CigarMatch, 1)
			continue
		}
		v := &votes[col]
		if v[4]*2 > weight[col] {
			ops.add(sam.CigarDeletion, 1)
			deleted++
			continue
		}
		bi, bw := 0, v[0]
		for i := 1; i < 4; i++ {
			if v[i] > bw {
				bi, bw = i, v[i]
			}
		}
		if bw == 0 {
			seq = append(seq, refBase(ref, col))
			qual = append(qual, 0)
			ops.add(sam.CigarMatch, 1)
			continue
		}
		seq = append(seq, bases[bi])
		qual = append(qual, scaleQual(bw, weight[col]))
		ops.add(sam.CigarMatch, 1)
		called++
	}

	return &Result{
		Seq:   seq,
		Qual:  qual,
		Cigar: ops.cigar(),
		Trace: fmt.Sprintf("plurality: %d columns, %d called, %d deleted, %d inserted", n, called, deleted, inserted),
	}, nil
}

var bases = [4]byte{'A', 'C', 'G', 'T'}

func baseIndex(b byte) int {
	switch b {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't':
		return 3
	}
	return -1
}

func refBase(ref *refseq.Sequence, col int) byte {
	if ref.Seq == nil {
		return 'N'
	}
	return ref.Seq[col]
}

func refQual(ref *refseq.Sequence, col int) byte {
	if ref.Qual == nil {
		return 0
	}
	return ref.Qual[col]
}

// scaleQual converts a vote fraction into a phred-like confidence,
// capped at maxQual.
func scaleQual(votes, total float64) byte {
	if total == 0 {
		return 0
	}
	q := int(maxQual*votes/total + 0.5)
	if q > maxQual {
		q = maxQual
	}
	return byte(q)
}

func bestInsertion(iv map[string]float64) (string, float64) {
	var (
		best string
		bw   float64
	)
	for s, w := range iv {
		if w > bw || (w == bw && s < best) {
			best, bw = s, w
		}
	}
	return best, bw
}

// tallyRecord walks one alignment's edit script, distributing base,
// deletion and insertion votes into the column tables. Ignored
// columns receive no votes.
func tallyRecord(r *sam.Record, votes [][5]float64, weight []float64, ins map[int]map[string]float64, ignored []bool, flags Flags) {
	n := len(votes)
	seq := r.Seq.Expand()
	qual := r.Qual
	if len(qual) != len(seq) {
		qual = nil
	}
	w := func(q int) float64 {
		if !flags.QualWeighted || qual == nil || q < 0 || q >= len(qual) {
			return 1
		}
		return float64(qual[q]) + 1
	}

	pos, q := r.Pos, 0
	for _, co := range r.Cigar {
		t, l := co.Type(), co.Len()
		switch t {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			for k := 0; k < l; k++ {
				col := pos + k
				if col < 0 || col >= n || ignored[col] {
					continue
				}
				if bi := baseIndex(seq[q+k]); bi >= 0 {
					wt := w(q + k)
					votes[col][bi] += wt
					weight[col] += wt
				}
			}
			pos += l
			q += l
		case sam.CigarInsertion:
			if pos > 0 && pos < n {
				key := string(seq[q : q+l])
				m := ins[pos]
				if m == nil {
					m = make(map[string]float64)
					ins[pos] = m
				}
				m[key] += w(q)
			}
			q += l
		case sam.CigarDeletion, sam.CigarSkipped:
			for k := 0; k < l; k++ {
				col := pos + k
				if col < 0 || col >= n || ignored[col] {
					continue
				}
				wt := w(q)
				votes[col][4] += wt
				weight[col] += wt
			}
			pos += l
		case sam.CigarSoftClipped:
			q += l
		}
	}
}

// opBuilder accumulates a CIGAR, merging adjacent operations of the
// same type.
type opBuilder struct {
	ops sam.Cigar
}

func (b *opBuilder) add(t sam.CigarOpType, l int) {
	if l <= 0 {
		return
	}
	if n := len(b.ops); n > 0 && b.ops[n-1].Type() == t {
		b.ops[n-1] = sam.NewCigarOp(t, b.ops[n-1].Len()+l)
		return
	}
	b.ops = append(b.ops, sam.NewCigarOp(t, l))
}

func (b *opBuilder) cigar() sam.Cigar { return b.ops }
