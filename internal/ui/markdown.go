package ui

import "github.com/charmbracelet/glamour"

// Markdown renders md for terminal display. Any renderer failure falls back
// to the raw markdown so content is never lost.
func Markdown(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
