// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// Iterator yields the alignment records of one reference in stream
// order. It matches the shape of bam.Iterator.
type Iterator interface {
	Next() bool
	Record() *sam.Record
	Error() error
	Close() error
}

// Source provides region-restricted access to a sorted alignment
// archive: header metadata and a per-reference alignment stream.
// ByRef may be called concurrently for distinct references.
type Source interface {
	Header() *sam.Header
	ByRef(name string) (Iterator, error)
}

// IndexedBAM is a Source over a coordinate-sorted BAM file with a
// BAI index. Each ByRef call opens an independent reader, so
// references can be streamed concurrently.
type IndexedBAM struct {
	path string
	h    *sam.Header
	idx  *bam.Index
}

// OpenIndexedBAM opens the BAM file at path with the index at path
// plus ".bai".
func OpenIndexedBAM(path string) (*IndexedBAM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br, err := bam.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "pipeline: opening %s", path)
	}
	h := br.Header()
	br.Close()
	f.Close()

	ixf, err := os.Open(path + ".bai")
	if err != nil {
		return nil, err
	}
	defer ixf.Close()
	idx, err := bam.ReadIndex(ixf)
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline: reading index for %s", path)
	}
	return &IndexedBAM{path: path, h: h, idx: idx}, nil
}

// Header returns the BAM header.
func (s *IndexedBAM) Header() *sam.Header { return s.h }

// ByRef returns an iterator over the alignments of the named
// reference.
func (s *IndexedBAM) ByRef(name string) (Iterator, error) {
	ref := refByName(s.h, name)
	if ref == nil {
		return nil, errors.Errorf("pipeline: reference %q not in header", name)
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	br, err := bam.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, err
	}
	chunks, err := s.idx.Chunks(br.Header().Refs()[ref.ID()], 0, ref.Len())
	if err != nil {
		// No index entries means no alignments for the
		// reference, not a failure.
		br.Close()
		f.Close()
		return emptyIterator{}, nil
	}
	it, err := bam.NewIterator(br, chunks)
	if err != nil {
		br.Close()
		f.Close()
		return nil, err
	}
	return &bamIterator{Iterator: it, closers: []io.Closer{br, f}}, nil
}

func refByName(h *sam.Header, name string) *sam.Reference {
	for _, r := range h.Refs() {
		if r.Name() == name {
			return r
		}
	}
	return nil
}

type bamIterator struct {
	*bam.Iterator
	closers []io.Closer
}

func (i *bamIterator) Close() error {
	err := i.Iterator.Close()
	for _, c := range i.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type emptyIterator struct{}

func (emptyIterator) Next() bool          { return false }
func (emptyIterator) Record() *sam.Record { return nil }
func (emptyIterator) Error() error        { return nil }
func (emptyIterator) Close() error        { return nil }
