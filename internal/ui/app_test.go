package ui

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackview/internal/config"
	"trackview/internal/models"
	"trackview/internal/registry"
	"trackview/processing/capture"
	"trackview/processing/detector"
	"trackview/processing/session"
)

type queueScheduler struct{ queue []func() }

func (q *queueScheduler) After(_ time.Duration, fn func()) { q.queue = append(q.queue, fn) }

type nopModel struct{}

func (nopModel) Infer(image.Image) ([][]float32, error) { return nil, nil }
func (nopModel) Close() error                           { return nil }

type frameSource struct{}

func (frameSource) Read() (image.Image, error) { return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil }
func (frameSource) Close() error               { return nil }

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func newTestApp(t *testing.T) *DetectApp {
	t.Helper()
	fa := test.NewTempApp(t)
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.json"))

	cfg := config.NewDefaultConfig()
	cfg.Icon = ""
	cfg.ModelsList = write(t, dir, "modelslist.txt", "yolov8n\nbroken\n")
	cfg.ClassLists = map[string]string{"bestfire": write(t, dir, "fireSmoke.txt", "fire\nsmoke\n")}
	cfg.DefaultClassList = write(t, dir, "coco.txt", "person\ncar\n")

	cfg.Background = filepath.Join(dir, "background.png")
	f, err := os.Create(cfg.Background)
	require.NoError(t, err)
	bg := image.NewRGBA(image.Rect(0, 0, 4, 4))
	bg.Set(0, 0, color.RGBA{0, 255, 0, 255})
	require.NoError(t, png.Encode(f, bg))
	require.NoError(t, f.Close())

	display, err := NewCanvasDisplay(cfg.Background, cfg.GetWidth(), cfg.GetHeight())
	require.NoError(t, err)

	reg := registry.New(cfg)
	sess, err := session.New(session.Deps{
		Source: capture.NewAdapter(func(capture.SourceSpec) (capture.Source, error) {
			return frameSource{}, nil
		}),
		Invoker:  detector.NewInvoker(nil),
		Registry: reg,
		Loader: func(name, _ string) (detector.Model, error) {
			if name == "broken" {
				return nil, errors.New("no weights")
			}
			return nopModel{}, nil
		},
		Scheduler: &queueScheduler{},
		Display:   display,
	}, session.Options{Width: 1020, Height: 500, SkipThreshold: 3, TickDelay: time.Millisecond})
	require.NoError(t, err)

	_, err = sess.SwitchModel(cfg.DefaultModel)
	require.NoError(t, err)

	names, err := reg.ListModels()
	require.NoError(t, err)

	return CreateApp(fa, sess, display, cfg, names)
}

func TestCreateApp_InitialWidgets(t *testing.T) {
	a := newTestApp(t)

	assert.Equal(t, []string{"bestfire", "yolov8n", "broken"}, a.modelSelect.Options)
	assert.Equal(t, "bestfire", a.modelSelect.Selected)
	assert.Equal(t, []string{models.FilterAll, "fire", "smoke"}, a.classSelect.Options)
	assert.Equal(t, models.FilterAll, a.classSelect.Selected)
}

func TestModelSwitch_RepopulatesClasses(t *testing.T) {
	a := newTestApp(t)

	a.classSelect.SetSelected("smoke")
	require.Equal(t, "smoke", a.session.Filter())

	a.modelSelect.SetSelected("yolov8n")

	assert.Equal(t, []string{models.FilterAll, "person", "car"}, a.classSelect.Options)
	assert.Equal(t, models.FilterAll, a.classSelect.Selected)
	assert.Equal(t, models.FilterAll, a.session.Filter())
	assert.Equal(t, "yolov8n", a.session.Model())
}

func TestModelSwitch_FailureReverts(t *testing.T) {
	a := newTestApp(t)

	a.modelSelect.SetSelected("broken")

	assert.Equal(t, "bestfire", a.session.Model())
	assert.Equal(t, "bestfire", a.modelSelect.Selected)
	assert.Equal(t, []string{models.FilterAll, "fire", "smoke"}, a.classSelect.Options)
}

func TestPauseButtonFollowsState(t *testing.T) {
	a := newTestApp(t)

	test.Tap(a.pauseButton)
	assert.Equal(t, session.Idle, a.session.State(), "pause while idle is rejected")

	a.open(capture.Webcam(0, ""))
	assert.Equal(t, "State: playing", a.stateLabel.Text)

	test.Tap(a.pauseButton)
	assert.Equal(t, session.Paused, a.session.State())
	assert.Equal(t, "Resume", a.pauseButton.Text)

	test.Tap(a.pauseButton)
	assert.Equal(t, "Pause", a.pauseButton.Text)
}

func TestStopRestoresPlaceholder(t *testing.T) {
	a := newTestApp(t)
	placeholder := a.display.Canvas().Image

	a.open(capture.File("clip.mp4"))
	a.display.Show(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	require.NotEqual(t, placeholder, a.display.Canvas().Image)

	require.NoError(t, a.session.Stop())
	assert.Equal(t, placeholder, a.display.Canvas().Image)
}

func TestVideoFilter(t *testing.T) {
	filter := videoFilter()

	tests := []struct {
		path string
		want bool
	}{
		{"/videos/clip.mp4", true},
		{"/videos/clip.avi", true},
		{"/videos/clip.mov", true},
		{"/videos/clip.mkv", false},
		{"/videos/frame.jpg", false},
		{"/videos/notes", false},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, filter.Matches(storage.NewFileURI(tc.path)))
		})
	}
}

func TestClassOptionsSkipBlankEntries(t *testing.T) {
	a := newTestApp(t)

	a.setClassOptions([]string{"person", "", "car"})
	assert.Equal(t, []string{models.FilterAll, "person", "car"}, a.classSelect.Options)
}

func TestFormatters(t *testing.T) {
	a := &DetectApp{}
	assert.Equal(t, "FPS: 12", a.formatFPS(12))
	assert.Equal(t, "Latency: 35 ms", a.formatLatency(35*time.Millisecond))
}

func TestNewCanvasDisplay_MissingFile(t *testing.T) {
	_, err := NewCanvasDisplay(filepath.Join(t.TempDir(), "none.jpg"), 10, 10)
	assert.Error(t, err)
}
