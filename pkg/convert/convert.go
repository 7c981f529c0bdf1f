// Package convert converts EDGAR submission files to JSON, YAML or normalized SGML.
package convert

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/coolbeans/edgarsgml/pkg/config"
	"github.com/coolbeans/edgarsgml/pkg/sgml"
	"github.com/coolbeans/edgarsgml/pkg/source"
)

// FileResult is the outcome of converting one input.
type FileResult struct {
	Input    string         `json:"input"`
	Output   string         `json:"output,omitempty"`
	Warnings []sgml.Warning `json:"warnings,omitempty"`
	Skipped  bool           `json:"skipped,omitempty"`
	Duration time.Duration  `json:"duration"`
	Error    string         `json:"error,omitempty"`
	Err      error          `json:"-"`
}

// Converter writes converted filings into the configured output directory.
type Converter struct {
	cfg          *config.Config
	logger       *zap.Logger
	manifest     *Manifest
	manifestPath string
	saveMu       sync.Mutex
}

// New creates a Converter and loads the output directory's manifest.
func New(cfg *config.Config, logger *zap.Logger) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	manifestPath := filepath.Join(cfg.OutputDir, ManifestName)
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	return &Converter{
		cfg:          cfg,
		logger:       logger,
		manifest:     manifest,
		manifestPath: manifestPath,
	}, nil
}

// Manifest returns the converter's manifest.
func (c *Converter) Manifest() *Manifest {
	return c.manifest
}

// SaveManifest persists the manifest.
func (c *Converter) SaveManifest() error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	return c.manifest.Save(c.manifestPath)
}

// OutputPath returns where input's conversion is written.
func (c *Converter) OutputPath(input string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.cfg.OutputDir, base+"."+c.cfg.Format)
}

// ConvertFile converts one input. Decode failures are returned and also set on
// the result.
func (c *Converter) ConvertFile(ctx context.Context, input string) (*FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &FileResult{Input: input}
	fail := func(err error) (*FileResult, error) {
		result.Err = err
		result.Error = err.Error()
		result.Duration = time.Since(start)
		c.logger.Error("Conversion failed", zap.String("input", input), zap.Error(err))
		return result, err
	}

	sum, err := fileSHA256(input)
	if err != nil {
		return fail(err)
	}
	if !c.cfg.Force && c.manifest.Unchanged(input, sum, c.cfg.Format) {
		result.Skipped = true
		result.Output = c.OutputPath(input)
		result.Duration = time.Since(start)
		c.logger.Debug("Skipping unchanged filing", zap.String("input", input))
		return result, nil
	}

	decoded, err := source.Decode(input, c.cfg.Encoding, sgml.WithLogger(c.logger))
	if err != nil {
		return fail(err)
	}
	result.Warnings = decoded.Warnings

	var buf bytes.Buffer
	if err := c.render(&buf, decoded.Record); err != nil {
		return fail(fmt.Errorf("%s: failed to render %s: %w", input, c.cfg.Format, err))
	}

	output := c.OutputPath(input)
	if err := writeAtomic(output, buf.Bytes()); err != nil {
		return fail(err)
	}
	result.Output = output
	result.Duration = time.Since(start)

	c.manifest.Record(&ConversionRecord{
		InputPath:   input,
		InputSHA256: sum,
		OutputPath:  output,
		Format:      c.cfg.Format,
		Warnings:    len(result.Warnings),
		ConvertedAt: time.Now(),
	})
	c.logger.Info("Converted filing",
		zap.String("input", input),
		zap.String("output", output),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// ConvertAll converts inputs with at most Workers conversions in flight. A
// failing file is recorded in the report and does not stop the batch;
// cancelling ctx does. Repeated inputs run once; distinct inputs whose base
// names collide are rejected up front.
func (c *Converter) ConvertAll(ctx context.Context, inputs []string) (*Report, error) {
	inputs = lo.Uniq(inputs)
	if clashes := outputClashes(inputs, c.OutputPath); len(clashes) > 0 {
		return nil, fmt.Errorf("inputs share an output name: %s", strings.Join(clashes, "; "))
	}

	start := time.Now()
	results := make([]*FileResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			result, err := c.ConvertFile(gctx, input)
			if result == nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	waitErr := g.Wait()

	saveErr := c.SaveManifest()

	report := newReport(lo.Compact(results), time.Since(start))
	if waitErr != nil {
		return report, waitErr
	}
	if saveErr != nil {
		return report, saveErr
	}
	return report, nil
}

// outputClashes describes each output path claimed by more than one input,
// listing every input involved.
func outputClashes(inputs []string, outputPath func(string) string) []string {
	groups := lo.GroupBy(inputs, outputPath)
	var clashes []string
	for output, group := range groups {
		if len(group) > 1 {
			clashes = append(clashes, fmt.Sprintf("%s <- %s", output, strings.Join(group, ", ")))
		}
	}
	slices.Sort(clashes)
	return clashes
}

func (c *Converter) render(w io.Writer, rec *sgml.Record) error {
	switch c.cfg.Format {
	case config.FormatJSON:
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return err
		}
		return enc.Close()
	case config.FormatSGML:
		return sgml.Encode(w, rec)
	}
	return fmt.Errorf("unsupported format %q", c.cfg.Format)
}

// CollectInputs expands directories into the filing files beneath them and
// keeps files whose extension matches. Explicit file arguments are kept as given.
func CollectInputs(paths []string, extensions []string) ([]string, error) {
	var inputs []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat input: %w", err)
		}
		if !info.IsDir() {
			inputs = append(inputs, path)
			continue
		}
		var found []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
		inputs = append(inputs, FilterInputs(found, extensions)...)
	}
	return lo.Uniq(inputs), nil
}

// FilterInputs keeps paths whose extension is in extensions, ignoring case.
func FilterInputs(paths []string, extensions []string) []string {
	return lo.Filter(paths, func(path string, _ int) bool {
		return HasExtension(path, extensions)
	})
}

// HasExtension reports whether path ends in one of extensions, ignoring case.
func HasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return lo.ContainsBy(extensions, func(candidate string) bool {
		return strings.EqualFold(candidate, ext)
	})
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open filing: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".edgarsgml-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
