// Package llmjson recovers JSON objects from model replies that may be
// fenced, surrounded by prose, slightly malformed or cut off.
package llmjson

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/rs/zerolog"
)

// Extractor pulls a JSON object out of raw completion text.
// It never returns an error: failures are logged and reported as !ok.
type Extractor struct {
	log zerolog.Logger
}

// New creates an Extractor.
func New(log zerolog.Logger) *Extractor {
	return &Extractor{log: log}
}

// Extract returns the first well formed object in raw. When the object is
// truncated it falls back to the array stored under arrayKey, re-wrapped as
// {"arrayKey": [...]}. arrayKey may be empty to disable that fallback.
func (e *Extractor) Extract(raw, arrayKey string) (json.RawMessage, bool) {
	s := Clean(raw)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		e.log.Warn().Int("len", len(raw)).Msg("no json object in completion")
		return nil, false
	}

	if end, ok := scanBalanced(s, start, '{', '}'); ok {
		if obj, ok := parseObject(s[start : end+1]); ok {
			return obj, true
		}
		e.log.Debug().Msg("balanced object did not parse, trying array recovery")
	} else {
		e.log.Debug().Msg("unbalanced object, trying array recovery")
	}

	if arrayKey != "" {
		if arr, ok := findArray(s, arrayKey); ok {
			wrapped := `{"` + arrayKey + `":` + arr + `}`
			if obj, ok := parseObject(wrapped); ok {
				e.log.Info().Str("key", arrayKey).Msg("recovered array from truncated completion")
				return obj, true
			}
		}
	}

	e.log.Warn().Str("key", arrayKey).Int("len", len(raw)).Msg("could not extract json from completion")
	return nil, false
}

// Decode extracts and unmarshals into dst, which must be a non-nil pointer.
// dst is only assigned when the whole object decodes; a partial decode
// leaves it untouched.
func (e *Extractor) Decode(raw, arrayKey string, dst interface{}) bool {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		e.log.Error().Str("key", arrayKey).Msg("decode target is not a pointer")
		return false
	}

	obj, ok := e.Extract(raw, arrayKey)
	if !ok {
		return false
	}
	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(obj, tmp.Interface()); err != nil {
		e.log.Warn().Err(err).Str("key", arrayKey).Msg("extracted json does not match expected shape")
		return false
	}
	rv.Elem().Set(tmp.Elem())
	return true
}

// Clean trims whitespace and a surrounding code fence (```json ... ```).
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = s[3:]
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && isFenceTag(s[:nl]) {
			s = s[nl+1:]
		} else if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isFenceTag(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// scanBalanced returns the index of the bracket closing the one at start.
// Quoted runs (single or double) are skipped.
func scanBalanced(s string, start int, open, close byte) (int, bool) {
	depth := 0
	var quote byte
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// findArray locates `"key": [` and returns the balanced array text.
func findArray(s, key string) (string, bool) {
	for _, q := range []string{`"`, `'`} {
		needle := q + key + q
		from := 0
		for {
			idx := strings.Index(s[from:], needle)
			if idx < 0 {
				break
			}
			pos := from + idx + len(needle)
			pos = skipSpace(s, pos)
			if pos < len(s) && s[pos] == ':' {
				pos = skipSpace(s, pos+1)
				if pos < len(s) && s[pos] == '[' {
					if end, ok := scanBalanced(s, pos, '[', ']'); ok {
						return s[pos : end+1], true
					}
				}
			}
			from = from + idx + 1
		}
	}
	return "", false
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\n' || s[i] == '\r' || s[i] == '\t') {
		i++
	}
	return i
}

// parseObject accepts text as-is when valid, otherwise after repair.
func parseObject(text string) (json.RawMessage, bool) {
	if isObject([]byte(text)) {
		return json.RawMessage(text), true
	}
	repaired := normalizeQuotes(dropTrailingCommas(text))
	if isObject([]byte(repaired)) {
		return json.RawMessage(repaired), true
	}
	return nil, false
}

func isObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return false
	}
	var probe map[string]json.RawMessage
	return json.Unmarshal(b, &probe) == nil
}

// dropTrailingCommas removes commas that directly precede } or ].
func dropTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var quote byte
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			next := skipSpace(s, i+1)
			if next < len(s) && (s[next] == '}' || s[next] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// normalizeQuotes rewrites single-quoted strings as double-quoted ones.
func normalizeQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var quote byte
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote == 0:
			if c == '\'' {
				quote = '\''
				b.WriteByte('"')
				continue
			}
			if c == '"' {
				quote = '"'
			}
			b.WriteByte(c)
		case escaped:
			escaped = false
			b.WriteByte(c)
		case c == '\\':
			// \' is not a JSON escape
			if quote == '\'' && i+1 < len(s) && s[i+1] == '\'' {
				b.WriteByte('\'')
				i++
				continue
			}
			escaped = true
			b.WriteByte(c)
		case c == quote:
			quote = 0
			if c == '\'' {
				b.WriteByte('"')
			} else {
				b.WriteByte(c)
			}
		case quote == '\'' && c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
