// Package session owns the playback state machine and the timer-driven
// frame-update loop. All methods are expected to run on one goroutine: the
// UI event loop and scheduled ticks share it, so no locking is done.
package session

import (
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"trackview/internal/logger"
	"trackview/internal/models"
	"trackview/internal/registry"
	"trackview/processing/capture"
	"trackview/processing/detector"
	"trackview/processing/render"
)

// Scheduler runs fn once after d on the session goroutine.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// Display receives every fully processed frame.
type Display interface {
	Show(frame image.Image)
}

type Options struct {
	Width         int
	Height        int
	SkipThreshold int
	TickDelay     time.Duration
}

type Deps struct {
	Source    *capture.Adapter
	Invoker   *detector.Invoker
	Renderer  *render.Renderer
	Registry  *registry.Registry
	Loader    detector.Loader
	Scheduler Scheduler
	Display   Display
}

type Session struct {
	Deps
	opts Options

	state      State
	frameCount int
	ticking    bool

	model     string
	modelPath string
	classes   registry.ClassList
	filter    string

	stats stats

	// OnStateChange, when set, is called after every state change.
	OnStateChange func(State)
}

func New(deps Deps, opts Options) (*Session, error) {
	if opts.SkipThreshold < 1 {
		return nil, ErrInvalidThreshold
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if deps.Renderer == nil {
		deps.Renderer = render.NewRenderer()
	}

	return &Session{
		Deps:   deps,
		opts:   opts,
		state:  Idle,
		filter: models.FilterAll,
		stats:  newStats(time.Now),
	}, nil
}

func (s *Session) setState(next State) {
	prev := s.state
	s.state = next
	logger.Log().Debug("session state", zap.Stringer("from", prev), zap.Stringer("to", next))
	if s.OnStateChange != nil {
		s.OnStateChange(next)
	}
}

// Open starts playing spec, releasing any open source first. It is valid in
// every state.
func (s *Session) Open(spec capture.SourceSpec) error {
	next, err := transition(s.state, ActionOpen)
	if err != nil {
		return err
	}

	if err := s.Source.Open(spec); err != nil {
		if s.state.Active() {
			s.setState(Stopped)
		}
		return err
	}

	s.frameCount = 0
	s.Invoker.Reset()
	s.setState(next)
	s.arm()
	return nil
}

// TogglePause flips between Playing and Paused. The source stays open.
func (s *Session) TogglePause() error {
	next, err := transition(s.state, ActionToggle)
	if err != nil {
		return err
	}
	s.setState(next)
	return nil
}

// Stop releases the source and halts scheduling until the next Open.
func (s *Session) Stop() error {
	next, err := transition(s.state, ActionStop)
	if err != nil {
		return err
	}
	s.Source.Release()
	s.frameCount = 0
	s.setState(next)
	return nil
}

// arm starts the tick chain unless one is already pending.
func (s *Session) arm() {
	if s.ticking {
		return
	}
	s.ticking = true
	s.Scheduler.After(0, s.Tick)
}

func (s *Session) schedule(d time.Duration) {
	s.Scheduler.After(d, s.Tick)
}

// Tick runs one iteration of the frame-update loop and schedules the next.
func (s *Session) Tick() {
	switch s.state {
	case Playing:
	case Paused:
		s.schedule(s.opts.TickDelay)
		return
	default:
		s.ticking = false
		return
	}

	img, err := s.Source.Read()
	if err != nil {
		if !errors.Is(err, capture.ErrEndOfStream) {
			logger.Log().Warn("frame read failed", zap.Error(err))
		}
		s.schedule(s.opts.TickDelay)
		return
	}

	s.frameCount++
	if s.frameCount%s.opts.SkipThreshold != 0 {
		s.schedule(0)
		return
	}

	start := time.Now()
	s.process(img)
	s.stats.record(time.Since(start))

	s.schedule(s.opts.TickDelay)
}

func (s *Session) process(img image.Image) {
	frame := render.Resize(img, s.opts.Width, s.opts.Height)
	dets := s.Invoker.Detect(frame)
	drawn := s.Renderer.Draw(frame, dets, s.classes, s.filter)

	logger.Log().Debug("frame processed",
		zap.Int("frame", s.frameCount),
		zap.Int("detections", len(dets)),
		zap.Int("drawn", len(drawn)),
	)

	if s.Display != nil {
		s.Display.Show(frame)
	}
}

// SwitchModel loads the model and its class list, and resets the class
// filter to All. The returned list is in file order. On error nothing
// changes.
func (s *Session) SwitchModel(name string) (registry.ClassList, error) {
	classes, err := s.Registry.LoadClassList(name)
	if err != nil {
		return nil, err
	}

	path := s.Registry.ModelPath(name)
	m, err := s.Loader(name, path)
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", name, err)
	}

	s.Invoker.Swap(m)
	s.model = name
	s.modelPath = path
	s.classes = classes
	s.filter = models.FilterAll

	logger.Log().Info("model selected",
		zap.String("model", name),
		zap.String("path", path),
		zap.Int("classes", len(classes)),
	)
	return classes, nil
}

func (s *Session) SetFilter(filter string) {
	if filter == "" {
		filter = models.FilterAll
	}
	s.filter = filter
}

func (s *Session) SetSkipThreshold(n int) error {
	if n < 1 {
		return ErrInvalidThreshold
	}
	s.opts.SkipThreshold = n
	return nil
}

// Close stops playback and releases the source and the model.
func (s *Session) Close() error {
	if s.state.Active() {
		_ = s.Stop()
	}
	s.Source.Release()
	return s.Invoker.Close()
}

func (s *Session) State() State                { return s.state }
func (s *Session) FrameCount() int             { return s.frameCount }
func (s *Session) Filter() string              { return s.filter }
func (s *Session) Classes() registry.ClassList { return s.classes }
func (s *Session) Model() string               { return s.model }
func (s *Session) ModelPath() string           { return s.modelPath }
func (s *Session) SkipThreshold() int          { return s.opts.SkipThreshold }
func (s *Session) Stats() (fps uint, latency time.Duration) {
	return s.stats.fps, s.stats.latency
}
