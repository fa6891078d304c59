// Package web embeds the static browser UI.
package web

import "embed"

//go:embed static
var StaticFS embed.FS
