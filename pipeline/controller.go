// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"runtime"
	"sort"
	"sync"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/FraPria/proovread/align"
	"github.com/FraPria/proovread/chimera"
	"github.com/FraPria/proovread/consensus"
	"github.com/FraPria/proovread/filter"
	"github.com/FraPria/proovread/internal/natsort"
	"github.com/FraPria/proovread/mask"
	"github.com/FraPria/proovread/refseq"
	"github.com/FraPria/proovread/remap"
)

// ErrRefMismatch is returned when a streamed alignment names a
// reference other than the one being processed. It indicates a
// malformed or unsorted source stream and is fatal.
var ErrRefMismatch = errors.New("pipeline: alignment reference mismatch")

// Controller runs the pipeline over all references. References are
// processed independently, in parallel up to the configured thread
// count, and emitted in natural reference order.
type Controller struct {
	Config *Config
	Source Source
	Refs   []*refseq.Sequence
	Engine consensus.Engine
	Sinks  *Sinks
	Log    *logrus.Logger
}

// refResult is the output of one reference's pipeline run, carrying
// its rank for ordered emission.
type refResult struct {
	rank     int
	ref      *refseq.Sequence
	res      *consensus.Result
	chimeras []chimera.Record
	ignored  []*sam.Record
	kept     []*sam.Record
	err      error
}

// Run processes every reference to completion. The first fatal error
// stops scheduling and is returned after in-flight references
// finish; output produced before the failure is left in place.
func (ct *Controller) Run() error {
	refs := ct.orderedRefs()
	if ct.Log != nil {
		ct.Log.WithField("references", len(refs)).Info("starting consensus run")
	}

	threads := ct.Config.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	if threads > len(refs) && len(refs) > 0 {
		threads = len(refs)
	}

	jobs := make(chan int)
	results := make(chan *refResult)
	quit := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(quit) }) }

	var wg sync.WaitGroup
	for w := 0; w < threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				r := ct.process(refs[i], i)
				select {
				case results <- r:
				case <-quit:
					return
				}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := range refs {
			select {
			case jobs <- i:
			case <-quit:
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	// Buffer-and-reorder emission: results are written strictly in
	// natural reference order by this single goroutine-equivalent
	// loop, which owns the sinks.
	pending := make(map[int]*refResult)
	next := 0
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
				stop()
			}
			continue
		}
		if firstErr != nil {
			continue
		}
		pending[r.rank] = r
		for {
			e, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if err := ct.emit(e); err != nil {
				firstErr = err
				stop()
				break
			}
		}
	}
	return firstErr
}

// orderedRefs returns the references in natural order, truncated to
// the configured maximum.
func (ct *Controller) orderedRefs() []*refseq.Sequence {
	refs := append([]*refseq.Sequence(nil), ct.Refs...)
	sort.SliceStable(refs, func(i, j int) bool { return natsort.Less(refs[i].ID, refs[j].ID) })
	if ct.Config.MaxRefs > 0 && len(refs) > ct.Config.MaxRefs {
		refs = refs[:ct.Config.MaxRefs]
	}
	return refs
}

// process runs the synchronous per-reference pipeline: intake,
// filter cascade, mask building, consensus and chimera detection.
func (ct *Controller) process(ref *refseq.Sequence, rank int) *refResult {
	out := &refResult{rank: rank, ref: ref}

	it, err := ct.Source.ByRef(ref.ID)
	if err != nil {
		out.err = errors.Wrapf(err, "pipeline: acquiring alignments for %s", ref.ID)
		return out
	}
	defer it.Close()

	mode := align.Binned
	if ct.Config.Contig {
		mode = align.Contig
	}
	intake := align.NewIntake(mode, ref.Len, ct.Config.BinSize, ct.Config.CoverageCap, ct.Config.MaxInsertLen)
	for it.Next() {
		r := it.Record()
		if r.Ref == nil || r.Ref.Name() != ref.ID {
			out.err = errors.Wrapf(ErrRefMismatch, "want %s, got record %q", ref.ID, r.Name)
			return out
		}
		rejected, err := intake.Add(r)
		if err != nil {
			out.err = err
			return out
		}
		out.ignored = append(out.ignored, rejected...)
	}
	if err := it.Error(); err != nil {
		out.err = errors.Wrapf(err, "pipeline: streaming %s", ref.ID)
		return out
	}

	set := intake.Set()
	admitted := set.Len()
	windows, dropped := filter.Apply(filter.Config{
		NCScoreMin:     ct.Config.NCScoreMin,
		RepeatCoverage: ct.Config.RepeatCoverage,
		Contig:         ct.Config.Contig,
	}, set, ref.Len)
	out.ignored = append(out.ignored, dropped...)

	var tags mask.Tags
	if !ct.Config.IgnoreMaskTags && ref.Desc != "" {
		tags, err = mask.Parse(ref.Desc)
		if err != nil {
			out.err = err
			return out
		}
	}
	ignore := mask.Union(tags.Masked, windows)

	flags := consensus.Flags{
		UseRefQual:   ct.Config.UseRefQual && ref.Seq != nil,
		QualWeighted: ct.Config.QualWeighted,
	}
	res, err := ct.Engine.Consensus(set, ref, ignore, flags)
	if err != nil {
		out.err = &consensus.EngineError{Ref: ref.ID, Err: err}
		return out
	}
	out.res = res

	if ct.Config.Chimera {
		det := chimera.Detector{BinSize: ct.Config.BinSize, MinScore: ct.Config.ChimeraMinScore}
		cands := det.Detect(set, ref.Len)
		out.chimeras = chimera.Remap(ref.ID, cands, remap.NewCursor(res.Cigar))
	}
	if ct.Config.Debug {
		out.kept = set.Records()
	}

	if ct.Log != nil {
		ct.Log.WithFields(logrus.Fields{
			"ref":       ref.ID,
			"admitted":  admitted,
			"filtered":  len(dropped),
			"masked":    len(ignore),
			"chimeras":  len(out.chimeras),
			"corrected": len(res.Seq),
		}).Debug("reference processed")
	}
	return out
}

// emit writes one reference's outputs to the sinks.
func (ct *Controller) emit(r *refResult) error {
	if err := ct.Sinks.WriteConsensus(r.ref.ID, r.res); err != nil {
		return err
	}
	for _, rec := range r.ignored {
		if err := ct.Sinks.WriteIgnored(rec); err != nil {
			return err
		}
	}
	for _, rec := range r.chimeras {
		if err := ct.Sinks.WriteChimera(rec); err != nil {
			return err
		}
	}
	if ct.Config.Debug {
		if err := ct.Sinks.WriteTrace(r.ref.ID, r.res.Trace); err != nil {
			return err
		}
		if err := ct.Sinks.MirrorSAM(r.kept); err != nil {
			return err
		}
	}
	return nil
}
