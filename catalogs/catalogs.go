// Package catalogs provides the embedded base catalog and its string tables.
package catalogs

import (
	"embed"
	"io/fs"
)

// BaseJSON is the bundled base catalog snapshot, embedded at build time.
//
//go:embed base/catalog.json
var BaseJSON []byte

//go:embed base/lang/*.yaml
var baseLang embed.FS

// BaseLang returns the bundled string tables, one <locale>.yaml per file.
func BaseLang() fs.FS {
	sub, err := fs.Sub(baseLang, "base/lang")
	if err != nil {
		panic(err)
	}
	return sub
}
