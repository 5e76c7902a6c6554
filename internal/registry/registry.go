package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trackview/internal/config"
)

type ClassList []string

// Name resolves a class index. Indices outside the list resolve to class_<n>
// and report ok=false.
func (c ClassList) Name(idx int) (string, bool) {
	if idx < 0 || idx >= len(c) {
		return fmt.Sprintf("class_%d", idx), false
	}
	return c[idx], true
}

// ReadLines returns the trimmed lines of a text file in file order. Blank
// lines are kept as "" so line numbers stay valid indices; only the empty
// field after a trailing newline is dropped.
func ReadLines(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := strings.Split(string(b), "\n")
	if n := len(raw); n > 0 && strings.TrimSpace(raw[n-1]) == "" {
		raw = raw[:n-1]
	}

	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimSpace(l))
	}
	return lines, nil
}

type Registry struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Registry {
	return &Registry{cfg: cfg}
}

// ListModels returns the default model followed by the models list file
// entries in file order, without duplicates.
func (r *Registry) ListModels() ([]string, error) {
	entries, err := ReadLines(r.cfg.ModelsList)
	if err != nil {
		return nil, fmt.Errorf("read models list: %w", err)
	}

	seen := make(map[string]bool)
	var models []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			models = append(models, name)
		}
	}

	add(r.cfg.DefaultModel)
	for _, e := range entries {
		add(e)
	}
	return models, nil
}

func (r *Registry) LoadClassList(model string) (ClassList, error) {
	path := r.cfg.ClassListFor(model)
	lines, err := ReadLines(path)
	if err != nil {
		return nil, fmt.Errorf("read class list for %q: %w", model, err)
	}
	return ClassList(lines), nil
}

func (r *Registry) ModelPath(model string) string {
	return filepath.Join(r.cfg.ModelsDir, model+r.cfg.ModelExt)
}
