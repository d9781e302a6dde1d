// Package firewall classifies raw query text before it reaches the
// relational engine. It admits exactly one top-level SELECT, INSERT or
// DELETE statement and rejects everything else.
//
// Known boundary: the firewall is keyword gating only. It strips comments,
// tokenizes the leading keyword, and enforces a single statement. It does
// not parse SQL, inspect subqueries, or attempt injection analysis beyond
// that; deeper restriction comes from the store exposing a single table.
package firewall

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the classification of an accepted statement.
type Kind int

const (
	// KindSelect is a read statement returning rows.
	KindSelect Kind = iota
	// KindInsert is a row-creating mutation.
	KindInsert
	// KindDelete is a row-removing mutation.
	KindDelete
)

// String returns the statement keyword for the kind.
func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindInsert:
		return "INSERT"
	case KindDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Mutation reports whether the kind affects rows.
func (k Kind) Mutation() bool {
	return k == KindInsert || k == KindDelete
}

var (
	// ErrMalformed indicates query text with no classifiable statement:
	// empty input, comment-only input, or an unterminated construct.
	ErrMalformed = errors.New("malformed query")

	// ErrMultipleStatements indicates more than one top-level statement in
	// a single call.
	ErrMultipleStatements = fmt.Errorf("%w: multiple statements", ErrMalformed)
)

// ForbiddenCommandError reports a leading keyword outside the allow-list.
// The keyword is preserved so rejections can name the offending command.
type ForbiddenCommandError struct {
	Keyword string
}

func (e *ForbiddenCommandError) Error() string {
	return fmt.Sprintf("forbidden command: %s", e.Keyword)
}

var allowed = map[string]Kind{
	"SELECT": KindSelect,
	"INSERT": KindInsert,
	"DELETE": KindDelete,
}

// Classify tokenizes the leading keyword of raw (case-insensitive, with
// leading whitespace and comments stripped) and returns its kind. It rejects
// keywords outside the allow-list with a ForbiddenCommandError and rejects
// input containing a second top-level statement.
func Classify(raw string) (Kind, error) {
	rest, err := skipIgnorable(raw)
	if err != nil {
		return 0, err
	}

	word := leadingWord(rest)
	if word == "" {
		return 0, ErrMalformed
	}

	kind, ok := allowed[strings.ToUpper(word)]
	if !ok {
		return 0, &ForbiddenCommandError{Keyword: strings.ToUpper(word)}
	}

	if err := checkSingleStatement(raw); err != nil {
		return 0, err
	}

	return kind, nil
}

// Body returns raw with trailing statement separators, comments and
// whitespace removed, leaving a bare statement that further clauses can be
// appended to. Separators and comment markers inside string literals and
// quoted identifiers are preserved.
func Body(raw string) string {
	i, end := 0, 0
	n := len(raw)
	for i < n {
		switch raw[i] {
		case '\'', '"', '`':
			j, err := skipQuoted(raw, i)
			if err != nil {
				return strings.TrimRight(raw, "; \t\r\n\v\f")
			}
			i = j
			end = i
		case '-':
			if i+1 < n && raw[i+1] == '-' {
				j := strings.IndexByte(raw[i:], '\n')
				if j < 0 {
					i = n
				} else {
					i += j + 1
				}
			} else {
				i++
				end = i
			}
		case '/':
			if i+1 < n && raw[i+1] == '*' {
				j := strings.Index(raw[i+2:], "*/")
				if j < 0 {
					i = n
				} else {
					i += 2 + j + 2
				}
			} else {
				i++
				end = i
			}
		case ';', ' ', '\t', '\r', '\n', '\v', '\f':
			i++
		default:
			i++
			end = i
		}
	}
	return raw[:end]
}

// skipIgnorable advances past leading whitespace, line comments and block
// comments. An unterminated block comment is malformed.
func skipIgnorable(s string) (string, error) {
	for {
		s = strings.TrimLeft(s, " \t\r\n\v\f")
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return "", nil
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s[2:], "*/")
			if i < 0 {
				return "", ErrMalformed
			}
			s = s[2+i+2:]
		default:
			return s, nil
		}
	}
}

// leadingWord returns the keyword-shaped token at the start of s.
func leadingWord(s string) string {
	end := 0
	for end < len(s) && isWordByte(s[end]) {
		end++
	}
	return s[:end]
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '_'
}

// checkSingleStatement scans the full text and rejects any content after a
// top-level statement separator. Separators inside string literals, quoted
// identifiers and comments do not count.
func checkSingleStatement(raw string) error {
	i := 0
	n := len(raw)
	for i < n {
		switch raw[i] {
		case '\'', '"', '`':
			end, err := skipQuoted(raw, i)
			if err != nil {
				return err
			}
			i = end
		case '-':
			if i+1 < n && raw[i+1] == '-' {
				j := strings.IndexByte(raw[i:], '\n')
				if j < 0 {
					return nil
				}
				i += j + 1
			} else {
				i++
			}
		case '/':
			if i+1 < n && raw[i+1] == '*' {
				j := strings.Index(raw[i+2:], "*/")
				if j < 0 {
					return ErrMalformed
				}
				i += 2 + j + 2
			} else {
				i++
			}
		case ';':
			// A trailing separator is tolerated; anything classifiable
			// after it is a second statement.
			rest, err := skipIgnorable(raw[i+1:])
			if err != nil {
				return err
			}
			if rest != "" {
				return ErrMultipleStatements
			}
			return nil
		default:
			i++
		}
	}
	return nil
}

// skipQuoted returns the index just past the quoted region starting at i.
// Doubling the quote character escapes it, per SQL.
func skipQuoted(s string, i int) (int, error) {
	q := s[i]
	i++
	for i < len(s) {
		if s[i] == q {
			if i+1 < len(s) && s[i+1] == q {
				i += 2
				continue
			}
			return i + 1, nil
		}
		i++
	}
	return 0, fmt.Errorf("%w: unterminated quote", ErrMalformed)
}
