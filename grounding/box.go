// Package grounding turns screenshots into scene reports and screen coordinates.
//
// Information Hiding:
// - Vision prompts and the strict box output contract
// - Normalized box parsing and the box to pixel transforms
// - Which frame a query runs against and how it is prepared for the model
// - Annotated trace images
package grounding

import (
	"math"
	"strconv"
	"strings"
)

// Extent is the size of the normalized model space on each axis.
const Extent = 1000.0

// Box is an axis-aligned rectangle in normalized model space.
type Box struct {
	XMin, YMin, XMax, YMax float64
}

// Center returns the midpoint of b in normalized space.
func (b Box) Center() (float64, float64) {
	return (b.XMin + b.XMax) / 2, (b.YMin + b.YMax) / 2
}

// BoxKind tags the outcome of parsing model output.
type BoxKind int

const (
	BoxValid BoxKind = iota
	BoxSentinel
	BoxMalformed
	BoxEmpty
)

func (k BoxKind) String() string {
	switch k {
	case BoxValid:
		return "valid"
	case BoxSentinel:
		return "sentinel"
	case BoxMalformed:
		return "malformed"
	case BoxEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// ParsedBox is the tagged result of ParseBox. Box is set only for BoxValid;
// Raw always holds the trimmed model output.
type ParsedBox struct {
	Kind BoxKind
	Box  Box
	Raw  string
}

// ParseBox reads exactly four numeric literals, optionally wrapped in one
// pair of [] or (), separated by commas or whitespace. The quadruple of -1
// is the not-found sentinel. Any other value outside [0, Extent], NaN,
// infinity, a min above its max, a wrong count or surrounding text is
// malformed.
func ParseBox(raw string) ParsedBox {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParsedBox{Kind: BoxEmpty}
	}
	malformed := ParsedBox{Kind: BoxMalformed, Raw: s}

	body := s
	if n := len(body); n >= 2 &&
		(body[0] == '[' && body[n-1] == ']' || body[0] == '(' && body[n-1] == ')') {
		body = body[1 : n-1]
	}

	var parts []string
	if strings.Contains(body, ",") {
		parts = strings.Split(body, ",")
		if last := len(parts) - 1; last > 0 && strings.TrimSpace(parts[last]) == "" {
			parts = parts[:last]
		}
	} else {
		parts = strings.Fields(body)
	}
	if len(parts) != 4 {
		return malformed
	}

	var v [4]float64
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return malformed
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return malformed
		}
		v[i] = f
	}

	if v[0] == -1 && v[1] == -1 && v[2] == -1 && v[3] == -1 {
		return ParsedBox{Kind: BoxSentinel, Raw: s}
	}
	for _, f := range v {
		if f < 0 || f > Extent {
			return malformed
		}
	}

	b := Box{XMin: v[0], YMin: v[1], XMax: v[2], YMax: v[3]}
	if b.XMin > b.XMax || b.YMin > b.YMax {
		return malformed
	}
	return ParsedBox{Kind: BoxValid, Box: b, Raw: s}
}
