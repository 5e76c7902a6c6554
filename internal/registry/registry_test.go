package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackview/internal/config"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func testRegistry(t *testing.T) (*Registry, *config.Config) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.NewDefaultConfig()
	cfg.ModelsDir = filepath.Join(dir, "models")
	cfg.ModelsList = writeFile(t, dir, "modelslist.txt", "yolov8n\r\nbestfire\n\nyolov8s\n")
	cfg.ClassLists = map[string]string{
		"bestfire": writeFile(t, dir, "fireSmoke.txt", "fire\nsmoke\n"),
	}
	cfg.DefaultClassList = writeFile(t, dir, "coco.txt", "person\nbicycle\ncar\n")

	return New(cfg), cfg
}

func TestReadLines(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "lines.txt", "a\r\n  b  \n\n\nc")

	lines, err := ReadLines(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "", "", "c"}, lines)

	_, err = ReadLines(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadClassList_BlankLineKeepsIndices(t *testing.T) {
	r, cfg := testRegistry(t)
	cfg.DefaultClassList = writeFile(t, t.TempDir(), "gaps.txt", "person\n\ncar\n")

	classes, err := r.LoadClassList("yolov8n")
	require.NoError(t, err)
	assert.Equal(t, ClassList{"person", "", "car"}, classes)

	name, ok := classes.Name(2)
	assert.True(t, ok)
	assert.Equal(t, "car", name)
}

func TestListModels_DefaultFirstNoDuplicates(t *testing.T) {
	r, _ := testRegistry(t)

	models, err := r.ListModels()
	require.NoError(t, err)
	assert.Equal(t, []string{"bestfire", "yolov8n", "yolov8s"}, models)
}

func TestListModels_MissingFile(t *testing.T) {
	r, cfg := testRegistry(t)
	cfg.ModelsList = filepath.Join(t.TempDir(), "none.txt")

	_, err := r.ListModels()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadClassList(t *testing.T) {
	r, _ := testRegistry(t)

	tests := []struct {
		model string
		want  ClassList
	}{
		{"bestfire", ClassList{"fire", "smoke"}},
		{"yolov8n", ClassList{"person", "bicycle", "car"}},
	}

	for _, tc := range tests {
		t.Run(tc.model, func(t *testing.T) {
			got, err := r.LoadClassList(tc.model)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestModelPath(t *testing.T) {
	r, cfg := testRegistry(t)
	assert.Equal(t, filepath.Join(cfg.ModelsDir, "yolov8n.onnx"), r.ModelPath("yolov8n"))
}

func TestClassList_Name(t *testing.T) {
	classes := ClassList{"fire", "smoke"}

	name, ok := classes.Name(1)
	assert.True(t, ok)
	assert.Equal(t, "smoke", name)

	name, ok = classes.Name(7)
	assert.False(t, ok)
	assert.Equal(t, "class_7", name)

	_, ok = classes.Name(-1)
	assert.False(t, ok)
}
