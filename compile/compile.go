// Package compile provides the text Compiler used by the bundled backends.
// It renders raw-SQL queries with :name placeholders into positional form,
// reporting which 1-based slots each name fills and the total slot count.
//
// Dialect generation from a structured query AST is deliberately not here;
// query-builder integrations bring their own Compiler.
package compile

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/crossdb-io/crossdb"
)

// Style selects the positional placeholder syntax of the target engine.
type Style int

const (
	Question Style = iota // "?"    (mysql, sqlite)
	Dollar                // "$1"   (postgres)
	AtP                   // "@p1"  (sqlserver)
)

// StyleFor picks a Style from a backend name.
func StyleFor(backend string) Style {
	switch backend {
	case "postgres", "postgresql", "pgx", "pg":
		return Dollar
	case "sqlserver", "mssql":
		return AtP
	default:
		return Question
	}
}

// Compiler compiles crossdb.SQL (or plain string) queries.
type Compiler struct {
	style Style
}

func New(style Style) *Compiler {
	return &Compiler{style: style}
}

// Compile implements crossdb.Compiler. Every :name occurrence becomes its
// own positional slot, numbered in appearance order, so a name used twice
// maps to two slots. Placeholders inside quoted strings, comments and ::
// casts are left alone.
func (c *Compiler) Compile(q crossdb.Query) (crossdb.Compiled, error) {
	var text string
	switch v := q.(type) {
	case crossdb.SQL:
		text = string(v)
	case string:
		text = v
	default:
		return crossdb.Compiled{}, fmt.Errorf("compile: unsupported query type %T", q)
	}
	return c.compileText(text)
}

func (c *Compiler) compileText(query string) (crossdb.Compiled, error) {
	out := make([]byte, 0, len(query)+8)
	params := make(map[string][]int)
	slot := 0

	i := 0
	for i < len(query) {
		r, w := utf8.DecodeRuneInString(query[i:])
		switch r {
		case '\'', '"', '`':
			j, err := skipQuoted(query, i+w, byte(r))
			if err != nil {
				return crossdb.Compiled{}, err
			}
			out = append(out, query[i:j]...)
			i = j
			continue
		case '-':
			if hasPrefix(query[i:], "--") {
				j := skipLineComment(query, i+2)
				out = append(out, query[i:j]...)
				i = j
				continue
			}
		case '/':
			if hasPrefix(query[i:], "/*") {
				j, err := skipBlockComment(query, i+2)
				if err != nil {
					return crossdb.Compiled{}, err
				}
				out = append(out, query[i:j]...)
				i = j
				continue
			}
		case ':':
			if hasPrefix(query[i:], "::") {
				// postgres cast
				out = append(out, ':', ':')
				i += 2
				continue
			}
			name, end := parseIdent(query, i+w)
			if name != "" {
				slot++
				params[name] = append(params[name], slot)
				out = c.appendPlaceholder(out, slot)
				i = end
				continue
			}
		}
		out = append(out, query[i:i+w]...)
		i += w
	}

	return crossdb.Compiled{
		Text:   string(out),
		Params: params,
		Slots:  slot,
	}, nil
}

func (c *Compiler) appendPlaceholder(out []byte, slot int) []byte {
	switch c.style {
	case Dollar:
		out = append(out, '$')
		return strconv.AppendInt(out, int64(slot), 10)
	case AtP:
		out = append(out, '@', 'p')
		return strconv.AppendInt(out, int64(slot), 10)
	default:
		return append(out, '?')
	}
}

func skipQuoted(s string, i int, quote byte) (int, error) {
	for i < len(s) {
		if s[i] == quote {
			// doubled quote escapes itself
			if i+1 < len(s) && s[i+1] == quote {
				i += 2
				continue
			}
			return i + 1, nil
		}
		i++
	}
	return 0, fmt.Errorf("compile: unterminated %c-quoted region", quote)
}

func skipLineComment(s string, i int) int {
	for i < len(s) {
		if s[i] == '\n' {
			return i + 1
		}
		i++
	}
	return i
}

func skipBlockComment(s string, i int) (int, error) {
	for i < len(s)-1 {
		if s[i] == '*' && s[i+1] == '/' {
			return i + 2, nil
		}
		i++
	}
	return 0, fmt.Errorf("compile: unterminated block comment")
}

func parseIdent(s string, i int) (string, int) {
	start := i
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		i += w
	}
	if i == start {
		return "", i
	}
	return s[start:i], i
}

func hasPrefix(s, p string) bool { return len(s) >= len(p) && s[:len(p)] == p }
