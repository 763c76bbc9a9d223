package genai

import (
	"encoding/json"
	"errors"
	"strings"
)

// snippetLimit bounds the diagnostic excerpt carried by a RepairError.
const snippetLimit = 200

// RepairJSON turns the text a language model returned into parseable JSON.
// Model output frequently wraps JSON in prose or code fences, leaves
// trailing commas, or embeds stray control characters, so the repair runs
// staged strategies:
//
//  1. strip Markdown code-fence delimiters;
//  2. slice from the first '{' or '[' to its matching closer;
//  3. strip ASCII control characters except tab and newline;
//  4. parse as strict JSON;
//  5. on failure, sanitize JSON5-style laxness (comments, trailing commas)
//     and parse again;
//  6. on failure, escape raw newlines inside string literals and retry.
//
// When every strategy fails it returns a *RepairError carrying a truncated
// snippet of the offending text. It never panics.
func RepairJSON(raw string) ([]byte, error) {
	text := stripFences(raw)
	text = sliceJSONSpan(text)
	text = stripControl(text)

	if json.Valid([]byte(text)) {
		return []byte(text), nil
	}

	lenient := sanitizeLenient(text)
	if json.Valid([]byte(lenient)) {
		return []byte(lenient), nil
	}

	escaped := sanitizeLenient(escapeNewlinesInStrings(text))
	if json.Valid([]byte(escaped)) {
		return []byte(escaped), nil
	}

	return nil, &RepairError{
		Snippet: truncate(strings.TrimSpace(raw), snippetLimit),
		Err:     errors.New("no repair strategy produced valid JSON"),
	}
}

// Unmarshal repairs raw model output and decodes it into v.
func Unmarshal(raw string, v interface{}) error {
	data, err := RepairJSON(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// stripFences removes Markdown code-fence delimiters and surrounding prose
// markers without touching the fenced payload.
func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// sliceJSONSpan cuts text down to the span from the first '{' or '[' to its
// matching closer, tracking string literals so braces inside strings are
// ignored. When no balanced span exists the input is returned unchanged and
// the parser decides.
func sliceJSONSpan(text string) string {
	start := -1
	var open, close byte
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			start, open, close = i, '{', '}'
			break
		}
		if text[i] == '[' {
			start, open, close = i, '[', ']'
			break
		}
	}
	if start == -1 {
		return text
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escape {
			escape = false
			continue
		}
		if ch == '\\' {
			escape = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}

	// Unbalanced; fall back to the last closer if one exists.
	if last := strings.LastIndexByte(text, close); last > start {
		return text[start : last+1]
	}
	return text[start:]
}

// stripControl removes ASCII control characters except tab and newline.
func stripControl(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch < 0x20 && ch != '\t' && ch != '\n' && ch != '\r' {
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// sanitizeLenient removes JSON5-style laxness: line and block comments and
// trailing commas before a closing brace or bracket, all outside string
// literals.
func sanitizeLenient(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escape := false
	i := 0
	for i < len(text) {
		ch := text[i]

		if inString {
			b.WriteByte(ch)
			if escape {
				escape = false
			} else if ch == '\\' {
				escape = true
			} else if ch == '"' {
				inString = false
			}
			i++
			continue
		}

		switch {
		case ch == '"':
			inString = true
			b.WriteByte(ch)
			i++
		case ch == '/' && i+1 < len(text) && text[i+1] == '/':
			for i < len(text) && text[i] != '\n' {
				i++
			}
		case ch == '/' && i+1 < len(text) && text[i+1] == '*':
			i += 2
			for i+1 < len(text) && !(text[i] == '*' && text[i+1] == '/') {
				i++
			}
			i += 2
		case ch == ',':
			// Drop the comma when the next non-whitespace byte closes a scope.
			j := i + 1
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				i++
				continue
			}
			b.WriteByte(ch)
			i++
		default:
			b.WriteByte(ch)
			i++
		}
	}

	return b.String()
}

// escapeNewlinesInStrings replaces raw newlines inside string literals with
// the \n escape so multi-line model output survives strict parsing.
func escapeNewlinesInStrings(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escape := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString && (ch == '\n' || ch == '\r') {
			if ch == '\n' {
				b.WriteString(`\n`)
			}
			continue
		}
		b.WriteByte(ch)
		if escape {
			escape = false
			continue
		}
		if ch == '\\' {
			escape = true
		} else if ch == '"' {
			inString = !inString
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
