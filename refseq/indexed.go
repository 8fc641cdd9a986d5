// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refseq

import (
	"io"
	"os"

	"github.com/biogo/hts/fai"
	"github.com/pkg/errors"
)

// Indexed provides random access to a FASTA reference file through
// its FAI index, allowing a run to resume at any reference without
// re-reading the file from the start.
type Indexed struct {
	f    *os.File
	file *fai.File
	idx  fai.Index
}

// OpenIndexed opens the FASTA file at path with the index at path
// plus ".fai". If the index file does not exist the index is built
// by scanning the sequence file.
func OpenIndexed(path string) (*Indexed, error) {
	var (
		idx fai.Index
		err error
	)
	f, err := os.Open(path + ".fai")
	switch {
	case err == nil:
		idx, err = fai.ReadFrom(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "refseq: reading index for %s", path)
		}
	case os.IsNotExist(err):
		sf, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		idx, err = fai.NewIndex(sf)
		sf.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "refseq: indexing %s", path)
		}
	default:
		return nil, err
	}
	sf, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Indexed{f: sf, file: fai.NewFile(sf, idx), idx: idx}, nil
}

// Seq returns the named reference. Indexed access yields no
// description line, so mask tags are unavailable through this path.
func (ix *Indexed) Seq(name string) (*Sequence, error) {
	sq, err := ix.file.Seq(name)
	if err != nil {
		return nil, err
	}
	b, err := io.ReadAll(sq)
	if err != nil {
		return nil, err
	}
	return &Sequence{ID: name, Len: len(b), Seq: b}, nil
}

// Names returns the indexed reference names in index order.
func (ix *Indexed) Names() []string {
	names := make([]string, 0, len(ix.idx))
	for name := range ix.idx {
		names = append(names, name)
	}
	return names
}

// Close releases the mapped sequence file.
func (ix *Indexed) Close() error { return ix.f.Close() }
