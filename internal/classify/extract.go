package classify

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	errNoJSONObject   = errors.New("no JSON object in model output")
	errInvalidJSONObj = errors.New("model output contains malformed JSON object")
)

// ExtractJSONObject returns the first balanced {...} span in text. Braces
// inside string literals do not count toward depth.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", errNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				span := text[start : i+1]
				if !gjson.Valid(span) {
					return "", errInvalidJSONObj
				}
				return span, nil
			}
		}
	}
	return "", errNoJSONObject
}
