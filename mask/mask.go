// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mask builds the ignore-coordinate set excluded from
// consensus voting, combining descriptor-tag regions with detected
// overlap windows.
//
// Reference descriptors may carry whitespace-separated tags of two
// families: "mcr:<start>,<len>" marks a masked coverage region
// supplied by prior processing, and "hcv:<payload>" carries haplotype
// coverage hints that are collected verbatim for the external
// haplotype path but not consumed here.
package mask

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/FraPria/proovread/cover"
)

const (
	mcrPrefix = "mcr:"
	hcvPrefix = "hcv:"
)

// Tags holds the regions parsed from one reference descriptor.
type Tags struct {
	// Masked are the masked-coverage-region intervals.
	Masked []cover.Interval

	// Haplotype are the raw haplotype-coverage payloads, retained
	// unparsed.
	Haplotype []string
}

// Parse extracts mask tags from a reference descriptor. Unrecognized
// tokens are ignored; an unparsable mcr tag is an error since it
// implies a corrupted descriptor.
func Parse(desc string) (Tags, error) {
	var t Tags
	for _, field := range strings.Fields(desc) {
		switch {
		case strings.HasPrefix(field, mcrPrefix):
			iv, err := parseMCR(field[len(mcrPrefix):])
			if err != nil {
				return Tags{}, err
			}
			t.Masked = append(t.Masked, iv)
		case strings.HasPrefix(field, hcvPrefix):
			t.Haplotype = append(t.Haplotype, field[len(hcvPrefix):])
		}
	}
	return t, nil
}

func parseMCR(s string) (cover.Interval, error) {
	start, length, ok := strings.Cut(s, ",")
	if !ok {
		return cover.Interval{}, errors.Errorf("mask: malformed mcr tag %q", s)
	}
	st, err := strconv.Atoi(start)
	if err != nil {
		return cover.Interval{}, errors.Wrapf(err, "mask: malformed mcr tag %q", s)
	}
	ln, err := strconv.Atoi(length)
	if err != nil {
		return cover.Interval{}, errors.Wrapf(err, "mask: malformed mcr tag %q", s)
	}
	if st < 0 || ln < 0 {
		return cover.Interval{}, errors.Errorf("mask: negative mcr tag %q", s)
	}
	return cover.Interval{Start: st, Len: ln}, nil
}

// Union merges tag-derived intervals with detected overlap windows
// into one ignore-coordinate set. Intervals are passed through as-is:
// overlaps and duplicates are preserved for the consensus engine to
// resolve, never dropped.
func Union(tags, windows []cover.Interval) []cover.Interval {
	if len(tags) == 0 && len(windows) == 0 {
		return nil
	}
	set := make([]cover.Interval, 0, len(tags)+len(windows))
	set = append(set, tags...)
	return append(set, windows...)
}
