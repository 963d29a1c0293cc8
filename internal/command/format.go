package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// IRC control codes, available to every template by name.
var controlCodes = map[string]any{
	"b": "\x02",
	"c": "\x03",
	"k": "\x03",
	"i": "\x1d",
	"u": "\x1f",
	"r": "\x0f",
}

// Indexer lets a value be addressed from templates as {v[key]} or {v.key}.
type Indexer interface {
	Index(key string) (any, bool)
}

var errMissingPositional = fmt.Errorf("%w: positional argument out of range", ErrFormat)

// Render formats an outbound message. The match, if any, is available as
// {m}; the control codes as {b}, {c}/{k}, {i}, {u} and {r}. Explicit named
// arguments win over both.
//
// When a positional field is missing and the single positional argument is
// a list, the list is expanded and formatting is retried, so
// ("Hello {} and {}", ["world", "Mars"]) renders both names.
func Render(m *Match, o Outbound) (string, error) {
	kwargs := make(map[string]any, len(controlCodes)+len(o.Kwargs)+1)
	for k, v := range controlCodes {
		kwargs[k] = v
	}
	if m != nil {
		kwargs["m"] = m
	}
	for k, v := range o.Kwargs {
		kwargs[k] = v
	}

	text, err := Format(o.Message, o.Args, kwargs)
	if errors.Is(err, errMissingPositional) && len(o.Args) == 1 {
		if list, ok := asList(o.Args[0]); ok {
			return Format(o.Message, list, kwargs)
		}
	}
	return text, err
}

// Format implements the brace template language: {} numbered
// automatically, {0} by index, {name} by keyword, {name[key]} and
// {name.key} for lookups, {{ and }} as literal braces, !s/!r conversions
// and a [[fill]align][width] spec.
func Format(template string, args []any, kwargs map[string]any) (string, error) {
	var (
		b      strings.Builder
		auto   int
		manual bool
	)

	for i := 0; i < len(template); i++ {
		ch := template[i]
		switch ch {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed '{' in %q", ErrFormat, template)
			}
			field := template[i+1 : i+1+end]
			i += end + 1

			name, rest := splitFieldName(field)
			var v any
			switch {
			case name == "":
				if manual {
					return "", fmt.Errorf("%w: cannot mix automatic and manual numbering", ErrFormat)
				}
				if auto >= len(args) {
					return "", errMissingPositional
				}
				v = args[auto]
				auto++
			case isDigits(name):
				if auto > 0 {
					return "", fmt.Errorf("%w: cannot mix automatic and manual numbering", ErrFormat)
				}
				manual = true
				n, _ := strconv.Atoi(name)
				if n >= len(args) {
					return "", errMissingPositional
				}
				v = args[n]
			default:
				kv, ok := kwargs[name]
				if !ok {
					return "", fmt.Errorf("%w: missing named argument %q", ErrFormat, name)
				}
				v = kv
			}

			s, err := applyField(v, rest)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("%w: single '}' in %q", ErrFormat, template)
		default:
			b.WriteByte(ch)
		}
	}

	return b.String(), nil
}

func splitFieldName(field string) (name, rest string) {
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case '[', '.', '!', ':':
			return field[:i], field[i:]
		}
	}
	return field, ""
}

// applyField walks lookups, then applies conversion and spec.
func applyField(v any, rest string) (string, error) {
	for len(rest) > 0 {
		var key string
		switch rest[0] {
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed '['", ErrFormat)
			}
			key, rest = rest[1:end], rest[end+1:]
		case '.':
			end := strings.IndexAny(rest[1:], "[.!:")
			if end < 0 {
				key, rest = rest[1:], ""
			} else {
				key, rest = rest[1:end+1], rest[end+1:]
			}
		default:
			return convert(v, rest)
		}

		next, err := lookup(v, key)
		if err != nil {
			return "", err
		}
		v = next
	}
	return fmt.Sprint(v), nil
}

func lookup(v any, key string) (any, error) {
	switch c := v.(type) {
	case Indexer:
		if out, ok := c.Index(key); ok {
			return out, nil
		}
	case map[string]any:
		if out, ok := c[key]; ok {
			return out, nil
		}
	case map[string]string:
		if out, ok := c[key]; ok {
			return out, nil
		}
	default:
		if list, ok := asList(v); ok {
			n, err := strconv.Atoi(key)
			if err == nil && n >= 0 && n < len(list) {
				return list[n], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no key %q in %T", ErrFormat, key, v)
}

func convert(v any, rest string) (string, error) {
	s := fmt.Sprint(v)
	if strings.HasPrefix(rest, "!") {
		if len(rest) < 2 {
			return "", fmt.Errorf("%w: empty conversion", ErrFormat)
		}
		switch rest[1] {
		case 's':
		case 'r':
			s = strconv.Quote(s)
		default:
			return "", fmt.Errorf("%w: unknown conversion %q", ErrFormat, rest[1])
		}
		rest = rest[2:]
	}
	if rest == "" {
		return s, nil
	}
	if rest[0] != ':' {
		return "", fmt.Errorf("%w: unexpected %q", ErrFormat, rest)
	}
	return pad(s, rest[1:])
}

// pad applies [[fill]align][width].
func pad(s, spec string) (string, error) {
	if spec == "" {
		return s, nil
	}

	fill, align := " ", byte('<')
	if r, size := utf8.DecodeRuneInString(spec); size < len(spec) && isAlign(spec[size]) {
		fill, align, spec = string(r), spec[size], spec[size+1:]
	} else if isAlign(spec[0]) {
		align, spec = spec[0], spec[1:]
	}

	width := 0
	if spec != "" {
		n, err := strconv.Atoi(spec)
		if err != nil || n < 0 {
			return "", fmt.Errorf("%w: unsupported spec %q", ErrFormat, spec)
		}
		width = n
	}

	missing := width - utf8.RuneCountInString(s)
	if missing <= 0 {
		return s, nil
	}
	switch align {
	case '>':
		return strings.Repeat(fill, missing) + s, nil
	case '^':
		left := missing / 2
		return strings.Repeat(fill, left) + s + strings.Repeat(fill, missing-left), nil
	}
	return s + strings.Repeat(fill, missing), nil
}

func isAlign(c byte) bool {
	return c == '<' || c == '>' || c == '^'
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
