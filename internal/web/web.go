// Package web embeds the single-page monitor UI served at the root.
package web

import _ "embed"

//go:embed index.html
var IndexHTML []byte
