// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils normalizes user supplied text such as category tags.
package textutils

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowerASCIIFolding normalizes a string by removing accents, lowercasing, and trimming spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// NormalizeTag folds a category tag to its canonical form: accents removed,
// lowercase, and inner whitespace or dashes collapsed to a single underscore
// ("Coffee Shop" and "coffee-shop" both become "coffee_shop").
func NormalizeTag(s string) string {
	fields := strings.FieldsFunc(LowerASCIIFolding(s), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})

	return strings.Join(fields, "_")
}

// SplitTags splits a comma separated list into normalized, non empty tags,
// preserving the first occurrence order.
func SplitTags(s string) []string {
	seen := make(map[string]bool)

	var ret []string

	for _, part := range strings.Split(s, ",") {
		tag := NormalizeTag(part)
		if tag == "" || seen[tag] {
			continue
		}

		seen[tag] = true

		ret = append(ret, tag)
	}

	return ret
}

// FormatInt formats an integer with commas for human readability.
func FormatInt(n int64) string {
	in := strconv.FormatInt(n, 10)

	numOfDigits := len(in)
	if n < 0 {
		numOfDigits-- // First character is the - sign (not a digit)
	}

	numOfCommas := (numOfDigits - 1) / 3

	out := make([]byte, len(in)+numOfCommas)
	if n < 0 {
		in, out[0] = in[1:], '-'
	}

	for i, j, k := len(in)-1, len(out)-1, 0; ; i, j = i-1, j-1 {
		out[j] = in[i]
		if i == 0 {
			return string(out)
		}

		if k++; k == 3 {
			j, k = j-1, 0
			out[j] = ','
		}
	}
}

// FormatDistance renders a distance in meters the way a list row shows it.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return strconv.FormatInt(int64(meters+0.5), 10) + " m"
	}

	return strconv.FormatFloat(meters/1000, 'f', 1, 64) + " km"
}
