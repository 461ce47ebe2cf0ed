package scriptcheck

import (
	"path/filepath"
	"strings"
)

// Dialect selects the grammar a script is checked against.
type Dialect int

const (
	// JavaScript covers component scripts shipped in the JS bundle.
	JavaScript Dialect = iota
	TypeScript
	TSX
	Unknown
)

func (d Dialect) String() string {
	switch d {
	case JavaScript:
		return "javascript"
	case TypeScript:
		return "typescript"
	case TSX:
		return "tsx"
	default:
		return "unknown"
	}
}

// DialectForPath picks a dialect from a file extension.
func DialectForPath(path string) Dialect {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return JavaScript
	case ".ts", ".mts", ".cts":
		return TypeScript
	case ".tsx":
		return TSX
	default:
		return Unknown
	}
}

// ParseDialect maps a name such as "js" or "typescript" to a Dialect.
func ParseDialect(name string) Dialect {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "javascript", "js", "":
		return JavaScript
	case "typescript", "ts":
		return TypeScript
	case "tsx":
		return TSX
	default:
		return Unknown
	}
}
