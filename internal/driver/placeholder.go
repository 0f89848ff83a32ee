package driver

import (
	"strconv"
	"strings"
)

// Placeholder is a bind marker convention.
type Placeholder uint8

// Placeholder styles.
const (
	// Positional uses ? for every parameter.
	Positional Placeholder = iota

	// Numbered uses $1, $2, ...
	Numbered

	// Named uses @p1, @p2, ...
	Named
)

// String returns the style name.
func (p Placeholder) String() string {
	switch p {
	case Positional:
		return "positional"
	case Numbered:
		return "numbered"
	case Named:
		return "named"
	}
	return "placeholder(" + strconv.Itoa(int(p)) + ")"
}

// Marker returns the marker for the n-th parameter, counting from 1.
func (p Placeholder) Marker(n int) string {
	switch p {
	case Numbered:
		return "$" + strconv.Itoa(n)
	case Named:
		return "@p" + strconv.Itoa(n)
	}
	return "?"
}

// Exchange rewrites every ? in sql into this style's markers, numbering
// from 1. A backslash-escaped \? is emitted as a literal ?. Other
// backslashes pass through unchanged.
func (p Placeholder) Exchange(sql string) string {
	if p == Positional && !strings.Contains(sql, `\?`) {
		return sql
	}
	var sb strings.Builder
	sb.Grow(len(sql) + 8)
	n := 1
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\\' && i+1 < len(sql) && sql[i+1] == '?':
			sb.WriteByte('?')
			i++
		case c == '?':
			sb.WriteString(p.Marker(n))
			n++
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
