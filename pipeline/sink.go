// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
	"github.com/biogo/hts/sam"

	"github.com/FraPria/proovread/chimera"
	"github.com/FraPria/proovread/consensus"
)

// SinkPaths names the output files of a run. Consensus, Ignored and
// Chimera are required; Trace and DebugSAM are optional debug
// artifacts, opened only when set.
type SinkPaths struct {
	Consensus string
	Ignored   string
	Chimera   string
	Trace     string
	DebugSAM  string
}

// Sinks owns the run's output streams. All writes go through the
// emission goroutine, preserving single-writer discipline.
type Sinks struct {
	cons    *fastq.Writer
	ignored *fastq.Writer
	chim    *os.File
	trace   *os.File
	debug   *sam.Writer

	files []*os.File
}

// OpenSinks opens the output streams, truncating or appending per
// the run-wide flag. Failure to open any required stream is fatal.
func OpenSinks(paths SinkPaths, h *sam.Header, appendMode bool) (*Sinks, error) {
	s := &Sinks{}
	open := func(path string) (*os.File, error) {
		flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if appendMode {
			flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := os.OpenFile(path, flag, 0o666)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.files = append(s.files, f)
		return f, nil
	}

	cf, err := open(paths.Consensus)
	if err != nil {
		return nil, err
	}
	s.cons = fastq.NewWriter(cf)
	igf, err := open(paths.Ignored)
	if err != nil {
		return nil, err
	}
	s.ignored = fastq.NewWriter(igf)
	s.chim, err = open(paths.Chimera)
	if err != nil {
		return nil, err
	}
	if paths.Trace != "" {
		s.trace, err = open(paths.Trace)
		if err != nil {
			return nil, err
		}
	}
	if paths.DebugSAM != "" {
		df, err := open(paths.DebugSAM)
		if err != nil {
			return nil, err
		}
		s.debug, err = sam.NewWriter(df, h, sam.FlagDecimal)
		if err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// WriteConsensus emits one corrected sequence as a FASTQ record.
func (s *Sinks) WriteConsensus(id string, res *consensus.Result) error {
	_, err := s.cons.Write(qSeq(id, res.Seq, res.Qual))
	return err
}

// WriteIgnored emits an unprocessed read as a FASTQ record.
func (s *Sinks) WriteIgnored(r *sam.Record) error {
	qual := r.Qual
	if len(qual) != r.Seq.Length {
		qual = make([]byte, r.Seq.Length)
	}
	_, err := s.ignored.Write(qSeq(r.Name, r.Seq.Expand(), qual))
	return err
}

// WriteChimera emits one breakpoint record as a tab-separated line.
func (s *Sinks) WriteChimera(rec chimera.Record) error {
	_, err := fmt.Fprintf(s.chim, "%s\t%d\t%d\t%.4f\n", rec.Ref, rec.Start, rec.End, rec.Score)
	return err
}

// WriteTrace emits engine diagnostic text when the trace sink is
// open.
func (s *Sinks) WriteTrace(id, trace string) error {
	if s.trace == nil || trace == "" {
		return nil
	}
	_, err := fmt.Fprintf(s.trace, "%s\t%s\n", id, trace)
	return err
}

// MirrorSAM writes the filtered alignments of a reference to the
// debug archive when it is open.
func (s *Sinks) MirrorSAM(recs []*sam.Record) error {
	if s.debug == nil {
		return nil
	}
	for _, r := range recs {
		if err := s.debug.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all open streams.
func (s *Sinks) Close() error {
	var err error
	for _, f := range s.files {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	s.files = nil
	return err
}

func qSeq(id string, sq, qual []byte) *linear.QSeq {
	ql := make(alphabet.QLetters, len(sq))
	for i := range sq {
		var q alphabet.Qphred
		if i < len(qual) {
			q = alphabet.Qphred(qual[i])
		}
		ql[i] = alphabet.QLetter{L: alphabet.Letter(sq[i]), Q: q}
	}
	return linear.NewQSeq(id, ql, alphabet.DNAredundant, alphabet.Sanger)
}
