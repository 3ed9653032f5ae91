// Package server populates the route table from the configured static
// content directories.
package server

import (
	"github.com/rs/zerolog"

	"github.com/Tyrowin/gostatic/internal/site"
)

// SetupRoutes builds the route table: every regular file in the images,
// scripts and styles directories is served under "/" + its name, and "/"
// serves the landing page. Unreadable directories and a missing landing page
// are logged and skipped.
func SetupRoutes(cfg SiteConfig, logger zerolog.Logger) *site.Registry {
	registry := site.NewRegistry()

	dirs := []struct {
		kind string
		path string
	}{
		{kind: "images", path: cfg.ImagesDir},
		{kind: "scripts", path: cfg.ScriptsDir},
		{kind: "styles", path: cfg.StylesDir},
	}

	for _, dir := range dirs {
		count, err := registry.RegisterDir(dir.path)
		if err != nil {
			logger.Warn().Err(err).Msgf("couldn't load %s", dir.kind)
			continue
		}
		logger.Info().Str("dir", dir.path).Int("files", count).Msgf("loaded %s", dir.kind)
	}

	if !registry.Register("/", cfg.IndexFile) {
		logger.Warn().Str("file", cfg.IndexFile).Msg("landing page not found, / is not served")
	}

	for _, route := range registry.Routes() {
		logger.Debug().Str("path", route.URLPath).Str("file", route.FileLocation).Msg("route")
	}

	return registry
}
