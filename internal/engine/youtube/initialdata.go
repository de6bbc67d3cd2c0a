package youtube

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// initialDataMarker precedes the embedded state object on classic
// YouTube HTML pages.
const initialDataMarker = "var ytInitialData = "

// ExtractInitialData pulls the ytInitialData JSON object out of a raw
// channel page.
func ExtractInitialData(page []byte) ([]byte, error) {
	idx := bytes.Index(page, []byte(initialDataMarker))
	if idx < 0 {
		return nil, fmt.Errorf("ytInitialData marker not found")
	}
	data := extractJSON(page[idx+len(initialDataMarker):])
	if data == nil {
		return nil, fmt.Errorf("ytInitialData payload truncated")
	}
	return data, nil
}

// extractJSON extracts a complete JSON object starting at b[0] == '{'
// by tracking brace depth outside string literals.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	esc := false
	for i := 0; i < len(b); i++ {
		c := b[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// skipSpace advances past JSON whitespace.
func skipSpace(b []byte, i int) int {
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// collectRenderers returns the raw object for every `"key":{...}`
// occurrence in data, preserving document order. The match is
// case-sensitive, so videoRenderer does not pick up
// compactVideoRenderer or gridVideoRenderer entries.
func collectRenderers(data []byte, key string) [][]byte {
	marker := []byte(`"` + key + `":`)
	var out [][]byte
	for off := 0; ; {
		i := bytes.Index(data[off:], marker)
		if i < 0 {
			return out
		}
		start := skipSpace(data, off+i+len(marker))
		if obj := extractJSON(data[start:]); obj != nil {
			out = append(out, obj)
		}
		off += i + len(marker)
	}
}

// findRenderer returns the first `"key":{...}` object in data, or nil.
func findRenderer(data []byte, key string) []byte {
	marker := []byte(`"` + key + `":`)
	i := bytes.Index(data, marker)
	if i < 0 {
		return nil
	}
	start := skipSpace(data, i+len(marker))
	return extractJSON(data[start:])
}

// continuationToken finds the next-page token in a videos tab or
// browse response. Empty means the listing has no further pages.
func continuationToken(data []byte) string {
	obj := findRenderer(data, "continuationCommand")
	if obj == nil {
		return ""
	}
	var cmd struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(obj, &cmd); err != nil {
		return ""
	}
	return cmd.Token
}
