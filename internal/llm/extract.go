package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"crypto-analyst/internal/errs"
)

// Strategy attempts to pull a JSON candidate out of raw model output.
// It reports false when the shape it looks for is absent.
type Strategy func(raw string) (string, bool)

// Extract runs the strategies in order and returns the first candidate.
func Extract(raw string, strategies ...Strategy) (string, error) {
	for _, s := range strategies {
		if candidate, ok := s(raw); ok {
			return strings.TrimSpace(candidate), nil
		}
	}
	return "", fmt.Errorf("%w: no JSON candidate in model output", errs.ErrModelOutputUnparseable)
}

// ExtractInto extracts a candidate and strict-parses it into v.
func ExtractInto(raw string, v any, strategies ...Strategy) error {
	candidate, err := Extract(raw, strategies...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrModelOutputUnparseable, err)
	}
	return nil
}

// SentimentStrategies matches the first top-level balanced object; the
// sentiment prompt demands a bare JSON reply.
func SentimentStrategies() []Strategy {
	return []Strategy{FirstObject}
}

// RecommendationStrategies is the ordered fallback chain for models that
// wrap JSON in markdown fences. First match wins.
func RecommendationStrategies() []Strategy {
	return []Strategy{TaggedFence, TaggedFenceTight, GenericFence, WholeTrimmed}
}

// FirstObject finds the first top-level balanced {...} block, tracking
// string literals so braces inside them don't skew the depth count.
func FirstObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// TaggedFence extracts the interior of the first ```json fenced block.
func TaggedFence(raw string) (string, bool) {
	const open = "```json"
	start := strings.Index(raw, open)
	if start < 0 {
		return "", false
	}
	rest := raw[start+len(open):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// TaggedFenceTight matches a response that is exactly one ```json block.
func TaggedFenceTight(raw string) (string, bool) {
	t := strings.TrimSpace(raw)
	if strings.HasPrefix(t, "```json") && strings.HasSuffix(t, "```") && len(t) > len("```json")+3 {
		return t[len("```json") : len(t)-3], true
	}
	return "", false
}

// GenericFence matches a response that is exactly one untagged ``` block.
func GenericFence(raw string) (string, bool) {
	t := strings.TrimSpace(raw)
	if strings.HasPrefix(t, "```") && strings.HasSuffix(t, "```") && len(t) > 6 {
		return t[3 : len(t)-3], true
	}
	return "", false
}

// WholeTrimmed treats the entire trimmed response as the candidate.
func WholeTrimmed(raw string) (string, bool) {
	return strings.TrimSpace(raw), true
}
