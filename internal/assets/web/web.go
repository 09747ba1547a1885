// Package web embeds the browser send form served at "/".
package web

import "embed"

//go:embed index.html
var FS embed.FS

// IndexFile is the name of the form page inside FS.
const IndexFile = "index.html"
