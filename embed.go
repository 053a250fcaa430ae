package sitecms

import (
	"embed"

	"github.com/eringen/sitecms/content"
)

// EmbeddedAssets contains static assets shipped with the framework:
// editor.js and admin.css, served under /public/.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS

// EmbeddedSchemas holds the built-in resource schemas used when
// SiteConfig.SchemaPath is empty.
//
//go:embed schemas/site.yaml
var EmbeddedSchemas embed.FS

// DefaultRegistry parses the built-in schemas.
func DefaultRegistry() (*content.Registry, error) {
	data, err := EmbeddedSchemas.ReadFile("schemas/site.yaml")
	if err != nil {
		return nil, err
	}
	return content.ParseSchemas(data)
}
