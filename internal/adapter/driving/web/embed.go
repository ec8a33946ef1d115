package web

import "embed"

// templateFS holds the embedded page templates.
//
//go:embed templates/*.html
var templateFS embed.FS
