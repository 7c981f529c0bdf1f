package convert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ManifestName is the manifest file kept in the output directory.
const ManifestName = ".edgarsgml-manifest.json"

const manifestVersion = "1.0.0"

// Manifest tracks which inputs have been converted so reruns can skip them.
type Manifest struct {
	Version     string                       `json:"version"`
	UpdatedAt   time.Time                    `json:"updated_at"`
	Conversions map[string]*ConversionRecord `json:"conversions"`

	mu sync.Mutex
}

// ConversionRecord describes one completed conversion.
type ConversionRecord struct {
	InputPath   string    `json:"input_path"`
	InputSHA256 string    `json:"input_sha256"`
	OutputPath  string    `json:"output_path"`
	Format      string    `json:"format"`
	Warnings    int       `json:"warnings"`
	ConvertedAt time.Time `json:"converted_at"`
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Version:     manifestVersion,
		UpdatedAt:   time.Now(),
		Conversions: make(map[string]*ConversionRecord),
	}
}

// LoadManifest reads a manifest from disk. A missing file yields an empty manifest.
func LoadManifest(manifestPath string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	manifest := NewManifest()
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Conversions == nil {
		manifest.Conversions = make(map[string]*ConversionRecord)
	}
	return manifest, nil
}

// Save writes the manifest to disk.
func (manifest *Manifest) Save(manifestPath string) error {
	manifest.mu.Lock()
	manifest.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(manifest, "", "  ")
	manifest.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(manifestPath), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Unchanged reports whether input was already converted to format from the
// same content and the output is still on disk.
func (manifest *Manifest) Unchanged(input, sum, format string) bool {
	manifest.mu.Lock()
	record, ok := manifest.Conversions[input]
	manifest.mu.Unlock()
	if !ok || record.InputSHA256 != sum || record.Format != format {
		return false
	}
	_, err := os.Stat(record.OutputPath)
	return err == nil
}

// Record stores a completed conversion.
func (manifest *Manifest) Record(record *ConversionRecord) {
	manifest.mu.Lock()
	defer manifest.mu.Unlock()
	manifest.Conversions[record.InputPath] = record
}

// Len returns the number of recorded conversions.
func (manifest *Manifest) Len() int {
	manifest.mu.Lock()
	defer manifest.mu.Unlock()
	return len(manifest.Conversions)
}
