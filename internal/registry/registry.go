// Package registry loads scorer manifests from a keyed store with an
// in-memory cache and a caller-supplied default on miss.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ClaudioL888/empathia/internal/models"
)

var ErrManifestNotFound = errors.New("manifest not found")

// Resolution tags where a manifest came from.
type Resolution int

const (
	ResolutionCached Resolution = iota
	ResolutionLoaded
	ResolutionDefault
)

type ModelRegistry struct {
	basePath string

	mu    sync.Mutex
	cache map[string]*models.ModelManifest
}

func New(basePath string) *ModelRegistry {
	if basePath == "" {
		basePath = os.Getenv("MODEL_REGISTRY_PATH")
	}
	if basePath == "" {
		basePath = "./models"
	}
	return &ModelRegistry{
		basePath: basePath,
		cache:    make(map[string]*models.ModelManifest),
	}
}

func (r *ModelRegistry) manifestPath(name, version string) string {
	return filepath.Join(r.basePath, name, version, "manifest.json")
}

// Manifest resolves a manifest by (name, version). Cache first, then the
// backing store; when the store has nothing, the default is installed and a
// warning logged. With no default, the lookup fails with ErrManifestNotFound.
func (r *ModelRegistry) Manifest(name, version string, def *models.ModelManifest) (*models.ModelManifest, Resolution, error) {
	cacheKey := name + ":" + version

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.cache[cacheKey]; ok {
		return m, ResolutionCached, nil
	}

	path := r.manifestPath(name, version)
	data, err := os.ReadFile(path)
	if err == nil {
		var manifest models.ModelManifest
		if uerr := json.Unmarshal(data, &manifest); uerr != nil {
			return nil, 0, fmt.Errorf("[ModelRegistry] Failed to parse manifest %s: %w", path, uerr)
		}
		r.cache[cacheKey] = &manifest
		slog.Info("[ModelRegistry] Loaded manifest",
			slog.String("model", name),
			slog.String("version", version),
			slog.String("path", path))
		return &manifest, ResolutionLoaded, nil
	}

	if def == nil {
		return nil, 0, fmt.Errorf("[ModelRegistry] %w: %s:%s at %s", ErrManifestNotFound, name, version, path)
	}

	slog.Warn("[ModelRegistry] Manifest missing, installing default",
		slog.String("model", name),
		slog.String("version", version),
		slog.String("path", path))
	r.cache[cacheKey] = def
	return def, ResolutionDefault, nil
}
