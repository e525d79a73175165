package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// Manifest lists the raw files written by the fetchers, keyed the same way
// the fetchers key them.
type Manifest struct {
	Ground    map[string]string   `json:"GROUND,omitempty"`
	Satellite map[string][]string `json:"TEMPO,omitempty"`
	Weather   map[string][]string `json:"WEATHER,omitempty"`
	Aerosol   map[string][]string `json:"VIIRS,omitempty"`
}

// LoadManifest reads a manifest JSON file.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return m, nil
}

// Tasks flattens the manifest in a stable order: sources in merge order,
// labels sorted, files as listed.
func (m Manifest) Tasks() []Task {
	var tasks []Task
	for _, label := range sortedKeys(m.Ground) {
		if p := m.Ground[label]; p != "" {
			tasks = append(tasks, Task{Source: domain.SourceGround, Label: label, Path: p})
		}
	}
	add := func(src domain.Source, files map[string][]string) {
		for _, label := range sortedKeys(files) {
			for _, p := range files[label] {
				tasks = append(tasks, Task{Source: src, Label: label, Path: p})
			}
		}
	}
	add(domain.SourceSatellite, m.Satellite)
	add(domain.SourceWeather, m.Weather)
	add(domain.SourceAerosol, m.Aerosol)
	return tasks
}

// Empty reports whether the manifest names no files.
func (m Manifest) Empty() bool {
	return len(m.Tasks()) == 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var griddedExts = map[string]bool{".nc": true, ".nc4": true, ".h5": true, ".he5": true, ".hdf": true}

var groundExts = map[string]bool{".parquet": true, ".json": true, ".csv": true}

// Discover builds a manifest from the conventional raw layout:
//
//	<raw>/openaq/<file>            newest ground file
//	<raw>/tempo/<PRODUCT>/...      satellite granules
//	<raw>/weather/<COLLECTION>/... reanalysis files
//	<raw>/viirs/<PRODUCT>/...      aerosol granules
//
// Missing directories are skipped.
func Discover(rawDir string) (Manifest, error) {
	var m Manifest

	ground, err := newestFile(filepath.Join(rawDir, "openaq"), groundExts)
	if err != nil {
		return Manifest{}, err
	}
	if ground != "" {
		m.Ground = map[string]string{"OpenAQ": ground}
	}
	if m.Satellite, err = discoverLabelled(filepath.Join(rawDir, "tempo")); err != nil {
		return Manifest{}, err
	}
	if m.Weather, err = discoverLabelled(filepath.Join(rawDir, "weather")); err != nil {
		return Manifest{}, err
	}
	if m.Aerosol, err = discoverLabelled(filepath.Join(rawDir, "viirs")); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// discoverLabelled maps each subdirectory of dir to the gridded files under it.
func discoverLabelled(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var files []string
		err := filepath.WalkDir(filepath.Join(dir, e.Name()), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && griddedExts[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			sort.Strings(files)
			out[e.Name()] = files
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func newestFile(dir string, exts map[string]bool) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var (
		best    string
		bestMod int64
	)
	for _, e := range entries {
		if e.IsDir() || !exts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", err
		}
		mod := info.ModTime().UnixNano()
		if best == "" || mod > bestMod || (mod == bestMod && e.Name() > filepath.Base(best)) {
			best, bestMod = filepath.Join(dir, e.Name()), mod
		}
	}
	return best, nil
}
