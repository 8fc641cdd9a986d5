// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"io"
	"os/exec"

	"github.com/biogo/external"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// samtoolsView defines parameters for a samtools view invocation.
type samtoolsView struct {
	// Usage: samtools view [options] in.bam [region]
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}samtools{{end}}"` // samtools

	View       bool   `buildarg:"{{if .}}view{{end}}"`    // view
	HeaderOnly bool   `buildarg:"{{if .}}-H{{end}}"`      // -H: header only
	Header     bool   `buildarg:"{{if .}}-h{{end}}"`      // -h: include header
	Input      string `buildarg:"{{.}}"`                  // "in.bam"
	Region     string `buildarg:"{{if .}}{{.}}{{end}}"`   // region
}

// BuildCommand implements external.CommandBuilder.
func (v samtoolsView) BuildCommand() (*exec.Cmd, error) {
	cl := external.Must(external.Build(v))
	return exec.Command(cl[0], cl[1:]...), nil
}

// Samtools is a Source streaming region-restricted SAM records from
// a sorted, indexed alignment archive through a samtools view
// subprocess. Each ByRef call runs an independent subprocess, so
// references can be streamed concurrently.
type Samtools struct {
	// Cmd is the samtools executable; empty means "samtools" from
	// the search path.
	Cmd string

	path string
	h    *sam.Header
}

// OpenSamtools prepares a samtools-backed source for the archive at
// path and reads its header.
func OpenSamtools(cmd, path string) (*Samtools, error) {
	s := &Samtools{Cmd: cmd, path: path}
	c, err := samtoolsView{Cmd: cmd, View: true, HeaderOnly: true, Input: path}.BuildCommand()
	if err != nil {
		return nil, err
	}
	out, err := c.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err = c.Start(); err != nil {
		return nil, errors.Wrap(err, "pipeline: starting samtools")
	}
	sr, err := sam.NewReader(out)
	if err != nil {
		c.Wait()
		return nil, errors.Wrapf(err, "pipeline: reading header of %s", path)
	}
	s.h = sr.Header()
	io.Copy(io.Discard, out)
	if err = c.Wait(); err != nil {
		return nil, errors.Wrap(err, "pipeline: samtools view -H")
	}
	return s, nil
}

// Header returns the archive header.
func (s *Samtools) Header() *sam.Header { return s.h }

// ByRef returns an iterator streaming the alignments of the named
// reference from a samtools view subprocess.
func (s *Samtools) ByRef(name string) (Iterator, error) {
	c, err := samtoolsView{Cmd: s.Cmd, View: true, Header: true, Input: s.path, Region: name}.BuildCommand()
	if err != nil {
		return nil, err
	}
	out, err := c.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err = c.Start(); err != nil {
		return nil, errors.Wrap(err, "pipeline: starting samtools")
	}
	sr, err := sam.NewReader(out)
	if err != nil {
		c.Wait()
		return nil, errors.Wrapf(err, "pipeline: streaming %s", name)
	}
	return &samIterator{r: sr, out: out, cmd: c}, nil
}

type samIterator struct {
	r   *sam.Reader
	out io.Reader
	cmd *exec.Cmd
	rec *sam.Record
	err error
}

func (i *samIterator) Next() bool {
	if i.err != nil {
		return false
	}
	i.rec, i.err = i.r.Read()
	return i.err == nil
}

func (i *samIterator) Record() *sam.Record { return i.rec }

func (i *samIterator) Error() error {
	if i.err == io.EOF {
		return nil
	}
	return i.err
}

// Close discards any unread output so the subprocess is not left
// blocked writing into a full pipe, then reaps it.
func (i *samIterator) Close() error {
	io.Copy(io.Discard, i.out)
	werr := i.cmd.Wait()
	if err := i.Error(); err != nil {
		return err
	}
	return werr
}
