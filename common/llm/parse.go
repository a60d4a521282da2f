package llm

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

var ErrNoJSON = errors.New("no parseable JSON in model response")

// ParseModelResponse extracts a T from free-form model output, returning
// fallback() when nothing parses.
func ParseModelResponse[T any](text string, fallback func() T) T {
	v, err := TryParseModelResponse[T](text)
	if err != nil {
		return fallback()
	}
	return v
}

// TryParseModelResponse attempts, in order: the largest bracket-delimited
// substring ([...] or {...}), the next largest, then the whole response with
// markdown fences stripped.
func TryParseModelResponse[T any](text string) (T, error) {
	var zero T

	for _, candidate := range jsonCandidates(text) {
		var v T
		if err := json.Unmarshal([]byte(candidate), &v); err == nil {
			return v, nil
		}
	}

	return zero, ErrNoJSON
}

func jsonCandidates(text string) []string {
	var spans []string
	for _, pair := range [][2]byte{{'[', ']'}, {'{', '}'}} {
		start := strings.IndexByte(text, pair[0])
		end := strings.LastIndexByte(text, pair[1])
		if start >= 0 && end > start {
			spans = append(spans, text[start:end+1])
		}
	}
	sort.SliceStable(spans, func(i, j int) bool { return len(spans[i]) > len(spans[j]) })

	whole := stripFences(text)
	if whole != "" {
		spans = append(spans, whole)
	}
	return spans
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
