package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ClaudioL888/empathia/internal/models"
)

func writeManifest(t *testing.T, base, name, version, content string) {
	t.Helper()
	dir := filepath.Join(base, name, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestManifestLoadsFromDisk(t *testing.T) {
	base := t.TempDir()
	writeManifest(t, base, "demo-sentiment", "1.0.0", `{
		"name": "demo-sentiment",
		"version": "1.0.0",
		"labels": ["positive", "neutral", "negative"],
		"keywords": {"positive": ["great"], "negative": ["bad"]}
	}`)

	reg := New(base)
	manifest, resolution, err := reg.Manifest("demo-sentiment", "1.0.0", nil)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if resolution != ResolutionLoaded {
		t.Errorf("resolution = %v, want ResolutionLoaded", resolution)
	}
	if got := manifest.LabelKeywords["positive"]; len(got) != 1 || got[0] != "great" {
		t.Errorf("positive keywords = %v", got)
	}

	// Second lookup must come from cache.
	_, resolution, err = reg.Manifest("demo-sentiment", "1.0.0", nil)
	if err != nil {
		t.Fatalf("cached Manifest: %v", err)
	}
	if resolution != ResolutionCached {
		t.Errorf("resolution = %v, want ResolutionCached", resolution)
	}
}

func TestManifestFlatKeywordShape(t *testing.T) {
	base := t.TempDir()
	writeManifest(t, base, "demo-crisis", "1.0.0", `{
		"name": "demo-crisis",
		"version": "1.0.0",
		"keywords": ["suicide", "暴力"],
		"boost": ["now"]
	}`)

	reg := New(base)
	manifest, _, err := reg.Manifest("demo-crisis", "1.0.0", nil)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if len(manifest.Keywords) != 2 {
		t.Errorf("keywords = %v", manifest.Keywords)
	}
	if manifest.LabelKeywords != nil {
		t.Errorf("flat manifest produced label map: %v", manifest.LabelKeywords)
	}
	if len(manifest.Boost) != 1 || manifest.Boost[0] != "now" {
		t.Errorf("boost = %v", manifest.Boost)
	}
}

func TestManifestFallsBackToDefault(t *testing.T) {
	reg := New(t.TempDir())
	def := &models.ModelManifest{Name: "demo-empathy", Version: "1.0.0", Keywords: []string{"sorry"}}

	manifest, resolution, err := reg.Manifest("demo-empathy", "1.0.0", def)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if resolution != ResolutionDefault {
		t.Errorf("resolution = %v, want ResolutionDefault", resolution)
	}
	if manifest != def {
		t.Errorf("manifest is not the supplied default")
	}
}

func TestManifestMissingWithoutDefault(t *testing.T) {
	reg := New(t.TempDir())
	_, _, err := reg.Manifest("nope", "0.0.1", nil)
	if !errors.Is(err, ErrManifestNotFound) {
		t.Errorf("err = %v, want ErrManifestNotFound", err)
	}
}

func TestManifestParseError(t *testing.T) {
	base := t.TempDir()
	writeManifest(t, base, "demo-sentiment", "1.0.0", `{not json`)

	reg := New(base)
	if _, _, err := reg.Manifest("demo-sentiment", "1.0.0", nil); err == nil {
		t.Error("expected parse error, got nil")
	}
}
