// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// sam-consensus derives a per-reference consensus sequence from read
// alignments against draft references and flags candidate chimeric
// breakpoints in the corrected sequences.
package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/FraPria/proovread/consensus"
	"github.com/FraPria/proovread/pipeline"
	"github.com/FraPria/proovread/refseq"
)

var log = logrus.New()

func main() {
	if err := command().Execute(); err != nil {
		log.Fatal(err)
	}
}

func command() *cobra.Command {
	var (
		cfg pipeline.Config

		bamPath     string
		refPath     string
		samtools    string
		useSamtools bool

		outPath     string
		ignoredPath string
		chimPath    string
	)

	cmd := &cobra.Command{
		Use:   "sam-consensus -b alignments.bam [-r reference.fa]",
		Short: "per-reference consensus assembly from read alignments",
		Long: `sam-consensus streams the alignments of each reference from a sorted,
indexed alignment archive, filters unreliable alignments, masks
ambiguous regions, calls a weighted consensus and reports candidate
chimeric breakpoints in corrected-sequence coordinates. References
are processed in natural identifier order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Debug {
				log.SetLevel(logrus.DebugLevel)
			}
			return run(&cfg, bamPath, refPath, samtools, useSamtools, pipeline.SinkPaths{
				Consensus: outPath,
				Ignored:   ignoredPath,
				Chimera:   chimPath,
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&bamPath, "bam", "b", "", "sorted, indexed alignment archive (required)")
	fl.StringVarP(&refPath, "ref", "r", "", "reference sequences, FASTA or FASTQ")
	fl.BoolVar(&useSamtools, "samtools", false, "stream alignments through a samtools subprocess")
	fl.StringVar(&samtools, "samtools-cmd", "", "samtools executable (default from search path)")

	fl.StringVarP(&outPath, "out", "o", "consensus.fq", "consensus output")
	fl.StringVar(&ignoredPath, "ignored", "ignored.fq", "ignored/unprocessed read output")
	fl.StringVar(&chimPath, "chimera-out", "chimera.tsv", "chimera record output")
	fl.BoolVar(&cfg.Append, "append", false, "append to outputs instead of truncating")

	fl.BoolVar(&cfg.Contig, "utg", false, "contig mode: no coverage capping, containment and overlap-window filtering on")
	fl.IntVar(&cfg.CoverageCap, "coverage", 50, "per-bin coverage cap outside contig mode")
	fl.IntVar(&cfg.BinSize, "bin-size", 20, "bin width for coverage capping and local score comparison")
	fl.Float64Var(&cfg.NCScoreMin, "min-nscore", 0, "minimum normalized consensus score, 0 disables")
	fl.IntVar(&cfg.RepeatCoverage, "repeat-coverage", 0, "repeat coverage threshold, 0 disables")
	fl.IntVar(&cfg.MaxInsertLen, "max-insert", 0, "maximum alignment insertion length to tolerate, 0 disables")
	fl.BoolVar(&cfg.QualWeighted, "qual-weighted", false, "weight consensus votes by base quality")
	fl.BoolVar(&cfg.UseRefQual, "ref-qual", false, "include the reference base as a quality-weighted vote")
	fl.BoolVar(&cfg.IgnoreMaskTags, "no-mask-tags", false, "ignore mcr mask tags in reference descriptors")
	fl.BoolVar(&cfg.Chimera, "chimera", false, "detect candidate chimeric breakpoints")
	fl.Float64Var(&cfg.ChimeraMinScore, "chimera-min-score", 0.8, "minimum chimera breakpoint score")
	fl.IntVar(&cfg.MaxRefs, "max-refs", 0, "maximum number of references to process, 0 means all")
	fl.IntVar(&cfg.Threads, "threads", 0, "references processed in parallel, 0 means all cores")
	fl.IntVar(&cfg.PhredOffset, "phred", 0, "quality encoding offset, 0 means autodetect")
	fl.BoolVar(&cfg.Debug, "debug", false, "write trace and filtered-alignment artifacts")
	cmd.MarkFlagRequired("bam")

	return cmd
}

func run(cfg *pipeline.Config, bamPath, refPath, samtools string, useSamtools bool, paths pipeline.SinkPaths) error {
	var (
		src pipeline.Source
		err error
	)
	if useSamtools {
		src, err = pipeline.OpenSamtools(samtools, bamPath)
	} else {
		src, err = pipeline.OpenIndexedBAM(bamPath)
	}
	if err != nil {
		return err
	}

	refs, err := loadRefs(cfg, refPath, src)
	if err != nil {
		return err
	}

	if cfg.Debug {
		paths.Trace = paths.Consensus + ".trace"
		paths.DebugSAM = paths.Consensus + ".debug.sam"
	}
	sinks, err := pipeline.OpenSinks(paths, src.Header(), cfg.Append)
	if err != nil {
		return err
	}
	defer sinks.Close()

	ct := &pipeline.Controller{
		Config: cfg,
		Source: src,
		Refs:   refs,
		Engine: consensus.Plurality{},
		Sinks:  sinks,
	}
	ct.Log = log
	if err := ct.Run(); err != nil {
		return err
	}
	return sinks.Close()
}

// loadRefs reads the reference sequences, falling back to header
// metadata when no reference file is given. The fallback disables
// the quality-weighted and mask-tag paths.
func loadRefs(cfg *pipeline.Config, refPath string, src pipeline.Source) ([]*refseq.Sequence, error) {
	if refPath == "" {
		cfg.UseRefQual = false
		cfg.IgnoreMaskTags = true
		if _, err := cfg.ResolvePhred(0); err != nil {
			return nil, err
		}
		return refseq.FromHeader(src.Header()), nil
	}

	r, err := refseq.Open(refPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if _, err := cfg.ResolvePhred(r.Offset()); err != nil {
		return nil, err
	}
	var refs []*refseq.Sequence
	for {
		sq, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		refs = append(refs, sq)
	}
	if len(refs) == 0 {
		log.Warnf("no reference sequences in %s", refPath)
	}
	return refs, nil
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: false})
}
