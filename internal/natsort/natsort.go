// Copyright ©2021 The proovread Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package natsort provides natural-order comparison of sequence
// identifiers, ordering embedded integers by value so that "ctg2"
// sorts before "ctg10".
package natsort

import "sort"

// Compare returns -1, 0 or 1 depending on whether a orders before,
// equal to or after b. Identifiers are split into alternating
// non-digit and digit substrings which are compared element-wise,
// digit runs by integer value and text runs lexically. A split that
// is a strict prefix of the other orders first.
func Compare(a, b string) int {
	as := split(a)
	bs := split(b)
	for i := 0; i < len(as) && i < len(bs); i++ {
		av, bv := as[i], bs[i]
		if av == bv {
			continue
		}
		if isDigits(av) && isDigits(bv) {
			if c := compareNumeric(av, bv); c != 0 {
				return c
			}
			// Numerically equal but textually distinct, as in
			// "007" against "7": order lexically.
			if av < bv {
				return -1
			}
			return 1
		}
		if av < bv {
			return -1
		}
		return 1
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

// Less reports whether a orders before b under Compare.
func Less(a, b string) bool { return Compare(a, b) < 0 }

// Strings sorts ids in place into natural order.
func Strings(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return Less(ids[i], ids[j]) })
}

func isDigits(s string) bool { return s != "" && s[0] >= '0' && s[0] <= '9' }

// compareNumeric compares two digit runs by integer value without
// conversion, so arbitrarily long runs cannot overflow.
func compareNumeric(a, b string) int {
	at := trimZeros(a)
	bt := trimZeros(b)
	switch {
	case len(at) < len(bt):
		return -1
	case len(at) > len(bt):
		return 1
	case at < bt:
		return -1
	case at > bt:
		return 1
	}
	return 0
}

func trimZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}

// split cuts s at every transition between digit and non-digit bytes.
func split(s string) []string {
	if s == "" {
		return nil
	}
	var parts []string
	start := 0
	digits := s[0] >= '0' && s[0] <= '9'
	for i := 1; i < len(s); i++ {
		d := s[i] >= '0' && s[i] <= '9'
		if d != digits {
			parts = append(parts, s[start:i])
			start = i
			digits = d
		}
	}
	return append(parts, s[start:])
}
