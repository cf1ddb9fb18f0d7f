// ABOUTME: Embeds page templates, Markdown copy, and static assets into the binary
// ABOUTME: Provides templateFS, contentFS, and staticFS for the handlers

package web

import "embed"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed content/*.md
var contentFS embed.FS

//go:embed static
var staticFS embed.FS
