// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"os/exec"
	"strings"

	"github.com/biogo/hts/sam"
	"gopkg.in/check.v1"
)

// Closing a samIterator mid-stream must reap the subprocess even when
// it still has more output than the pipe can buffer; a Close that
// waits without draining deadlocks here.
func (s *S) TestSamIteratorCloseMidStream(c *check.C) {
	payload := "@HD\tVN:1.6\n@SQ\tSN:ctg1\tLN:100\n" +
		strings.Repeat("r1\t4\t*\t0\t0\t*\t*\t0\t0\t*\t*\n", 1<<16)
	cmd := exec.Command("cat")
	cmd.Stdin = strings.NewReader(payload)
	out, err := cmd.StdoutPipe()
	c.Assert(err, check.Equals, nil)
	c.Assert(cmd.Start(), check.Equals, nil)
	sr, err := sam.NewReader(out)
	c.Assert(err, check.Equals, nil)

	it := &samIterator{r: sr, out: out, cmd: cmd}
	c.Assert(it.Next(), check.Equals, true)
	c.Check(it.Close(), check.Equals, nil)
}
