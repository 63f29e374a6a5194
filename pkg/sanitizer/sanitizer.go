package sanitizer

import (
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var reNonPlate = regexp.MustCompile(`[^A-Z0-9 ]+`)

// NormalizePlate turns " b-1234 xyz " into "B 1234 XYZ".
func NormalizePlate(plate string) string {
	p := Pipeline{
		strings.ToUpper,
		func(s string) string { return reNonPlate.ReplaceAllString(s, " ") },
		TrimAndNormalize,
	}
	return p.Apply(plate)
}

// NormalizeStrings applies strategy to every value, dropping empties and duplicates.
func NormalizeStrings(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
