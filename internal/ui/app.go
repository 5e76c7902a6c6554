package ui

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"trackview/internal/config"
	"trackview/internal/logger"
	"trackview/internal/models"
	"trackview/internal/ui/cwidget"
	"trackview/processing/capture"
	"trackview/processing/session"
)

const (
	windowTitle    = "Detection Tracking"
	statsInterval  = 200 * time.Millisecond
	camerasLoading = "Loading cameras..."
	camerasNone    = "No cameras found"
)

var videoExtensions = []string{".mp4", ".avi", ".mov"}

func videoFilter() storage.FileFilter {
	return storage.NewExtensionFileFilter(videoExtensions)
}

type DetectApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	config  *config.Config
	session *session.Session
	display *CanvasDisplay
	models  []string

	modelSelect  *widget.Select
	classSelect  *widget.Select
	pauseButton  *widget.Button
	stateLabel   *widget.Label
	latencyLabel *widget.Label
	fpsLabel     *widget.Label

	stopStats chan struct{}
}

func CreateApp(a fyne.App, sess *session.Session, display *CanvasDisplay, cfg *config.Config, modelNames []string) *DetectApp {
	w := a.NewWindow(windowTitle)

	if cfg.Icon != "" {
		if icon, err := fyne.LoadResourceFromPath(cfg.Icon); err == nil {
			w.SetIcon(icon)
		} else {
			logger.Log().Debug("window icon not loaded", zap.String("path", cfg.Icon), zap.Error(err))
		}
	}

	app := &DetectApp{
		fyneApp:   a,
		mainWin:   w,
		config:    cfg,
		session:   sess,
		display:   display,
		models:    modelNames,
		stopStats: make(chan struct{}),
	}

	w.SetContent(app.build())
	sess.OnStateChange = app.onStateChange
	w.SetCloseIntercept(app.shutdown)

	return app
}

func (a *DetectApp) Run() {
	go a.runStatLoop()

	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()
}

func (a *DetectApp) build() fyne.CanvasObject {
	a.modelSelect = widget.NewSelect(a.models, a.onModelSelected)
	a.classSelect = widget.NewSelect(nil, func(s string) {
		a.session.SetFilter(s)
	})
	a.setClassOptions(a.session.Classes())
	if m := a.session.Model(); m != "" {
		a.modelSelect.SetSelected(m)
	}

	selectFile := widget.NewButtonWithIcon("Select File", theme.FolderOpenIcon(), a.selectFile)
	realtime := widget.NewButtonWithIcon("Real-time", theme.MediaVideoIcon(), func() {
		a.open(capture.Webcam(a.config.GetDeviceID(), a.config.Webcam.DeviceName))
	})
	a.pauseButton = widget.NewButtonWithIcon("Pause", theme.MediaPauseIcon(), func() {
		if err := a.session.TogglePause(); err != nil {
			a.showError(err)
		}
	})
	stop := widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), func() {
		if err := a.session.Stop(); err != nil {
			a.showError(err)
		}
	})

	skipInput := cwidget.NewIntInput(
		"Frame skip",
		"Enter integer",
		a.session.SkipThreshold(),
		1,
		func(n int) error {
			if err := a.session.SetSkipThreshold(n); err != nil {
				return err
			}
			a.config.SetSkipThreshold(n)
			return nil
		},
	)

	a.stateLabel = widget.NewLabel(a.formatState(a.session.State()))
	fps, latency := a.session.Stats()
	a.fpsLabel = widget.NewLabel(a.formatFPS(fps))
	a.latencyLabel = widget.NewLabel(a.formatLatency(latency))

	settingsLabel := widget.NewLabelWithStyle("Configuration", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	sidebar := container.NewVBox(
		settingsLabel,
		widget.NewSeparator(),
		widget.NewLabel("Model:"),
		a.modelSelect,
		widget.NewLabel("Class:"),
		a.classSelect,
		widget.NewSeparator(),
		a.cameraSettings(),
		skipInput,
		widget.NewSeparator(),
		selectFile,
		realtime,
		container.NewGridWithColumns(2, a.pauseButton, stop),
	)

	videoContainer := container.NewBorder(
		container.NewHBox(a.fpsLabel, widget.NewSeparator(), a.latencyLabel, widget.NewSeparator(), a.stateLabel),
		nil, nil, nil,
		a.display.Canvas(),
	)

	split := container.NewHSplit(
		container.NewPadded(sidebar),
		container.NewPadded(videoContainer),
	)
	split.SetOffset(0.2)

	return split
}

// cameraSettings shows a device index for OpenCV and a device name picker
// for the ffmpeg backend.
func (a *DetectApp) cameraSettings() fyne.CanvasObject {
	if a.config.CaptureBackend != config.BackendFFmpeg {
		return cwidget.NewIntInput("Camera index", "Enter integer", a.config.GetDeviceID(), 0, func(id int) error {
			a.config.SetDeviceID(id)
			return nil
		})
	}

	deviceSelect := widget.NewSelect([]string{camerasLoading}, func(s string) {
		if s != camerasLoading && s != camerasNone {
			a.config.Webcam.DeviceName = s
		}
	})
	deviceSelect.SetSelected(camerasLoading)
	deviceSelect.Disable()

	go func() {
		devices, err := capture.ListCameras()

		fyne.Do(func() {
			switch {
			case err != nil:
				a.showError(err)
				deviceSelect.Options = []string{camerasNone}
			case len(devices) == 0:
				deviceSelect.Options = []string{camerasNone}
			default:
				deviceSelect.Options = devices
				deviceSelect.Enable()
				if a.config.Webcam.DeviceName != "" {
					deviceSelect.SetSelected(a.config.Webcam.DeviceName)
				} else {
					deviceSelect.SetSelected(devices[0])
				}
			}
			deviceSelect.Refresh()
		})
	}()

	return container.NewVBox(widget.NewLabel("Select Camera:"), deviceSelect)
}

func (a *DetectApp) onModelSelected(name string) {
	if name == "" || name == a.session.Model() {
		return
	}

	classes, err := a.session.SwitchModel(name)
	if err != nil {
		a.showError(err)
		a.modelSelect.SetSelected(a.session.Model())
		return
	}
	a.setClassOptions(classes)
}

func (a *DetectApp) setClassOptions(classes []string) {
	options := make([]string, 0, len(classes)+1)
	options = append(options, models.FilterAll)
	for _, c := range classes {
		if c != "" {
			options = append(options, c)
		}
	}

	a.classSelect.Options = options
	a.classSelect.SetSelected(models.FilterAll)
	a.classSelect.Refresh()
}

func (a *DetectApp) selectFile() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		a.open(capture.File(path))
	}, a.mainWin)

	d.SetFilter(videoFilter())
	d.Show()
}

func (a *DetectApp) open(spec capture.SourceSpec) {
	if err := a.session.Open(spec); err != nil {
		a.showError(err)
	}
}

func (a *DetectApp) onStateChange(s session.State) {
	a.stateLabel.SetText(a.formatState(s))

	if s == session.Paused {
		a.pauseButton.SetText("Resume")
		a.pauseButton.SetIcon(theme.MediaPlayIcon())
	} else {
		a.pauseButton.SetText("Pause")
		a.pauseButton.SetIcon(theme.MediaPauseIcon())
	}

	if s == session.Stopped {
		a.display.Reset()
	}
}

func (a *DetectApp) runStatLoop() {
	uiTicker := time.NewTicker(statsInterval)
	defer uiTicker.Stop()

	for {
		select {
		case <-uiTicker.C:
			fyne.Do(a.refreshStats)
		case <-a.stopStats:
			return
		}
	}
}

func (a *DetectApp) refreshStats() {
	fps, latency := a.session.Stats()
	a.fpsLabel.SetText(a.formatFPS(fps))
	a.latencyLabel.SetText(a.formatLatency(latency))
}

func (a *DetectApp) shutdown() {
	close(a.stopStats)

	if err := a.session.Close(); err != nil {
		logger.Log().Warn("session close failed", zap.Error(err))
	}
	if err := a.config.Save(config.ConfigPath()); err != nil {
		logger.Log().Warn("config save failed", zap.Error(err))
	}

	a.mainWin.Close()
}

func (a *DetectApp) showError(err error) {
	logger.Log().Warn("ui action failed", zap.Error(err))
	dialog.ShowError(err, a.mainWin)
}

func (a *DetectApp) formatFPS(v uint) string {
	return fmt.Sprintf("FPS: %d", v)
}

func (a *DetectApp) formatLatency(v time.Duration) string {
	return fmt.Sprintf("Latency: %d ms", v.Milliseconds())
}

func (a *DetectApp) formatState(s session.State) string {
	return fmt.Sprintf("State: %s", s)
}

// FyneScheduler runs session ticks on the fyne main goroutine.
type FyneScheduler struct{}

func (FyneScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { fyne.Do(fn) })
}

// CanvasDisplay shows processed frames, or the placeholder while idle.
type CanvasDisplay struct {
	image       *canvas.Image
	placeholder image.Image
}

// NewCanvasDisplay loads the placeholder image at path and sizes the canvas
// to width x height.
func NewCanvasDisplay(placeholderPath string, width, height int) (*CanvasDisplay, error) {
	f, err := os.Open(placeholderPath)
	if err != nil {
		return nil, fmt.Errorf("open background: %w", err)
	}
	defer f.Close()

	placeholder, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode background %s: %w", placeholderPath, err)
	}

	img := canvas.NewImageFromImage(placeholder)
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(float32(width), float32(height)))

	return &CanvasDisplay{image: img, placeholder: placeholder}, nil
}

func (d *CanvasDisplay) Show(frame image.Image) {
	d.image.Image = frame
	d.image.Refresh()
}

func (d *CanvasDisplay) Reset() {
	d.Show(d.placeholder)
}

func (d *CanvasDisplay) Canvas() *canvas.Image {
	return d.image
}
