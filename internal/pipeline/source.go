package pipeline

import (
	"github.com/couchcryptid/air-quality-unifier/internal/extract"
)

// ManifestSource reads the manifest at manifestPath on every run, or
// discovers files under rawDir when no manifest is configured.
func ManifestSource(manifestPath, rawDir string) TaskSource {
	return func() ([]extract.Task, error) {
		var (
			m   extract.Manifest
			err error
		)
		if manifestPath != "" {
			m, err = extract.LoadManifest(manifestPath)
		} else {
			m, err = extract.Discover(rawDir)
		}
		if err != nil {
			return nil, err
		}
		return m.Tasks(), nil
	}
}
