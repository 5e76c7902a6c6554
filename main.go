package main

import (
	"fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"trackview/internal/config"
	"trackview/internal/logger"
	"trackview/internal/registry"
	"trackview/internal/ui"
	"trackview/processing/capture"
	"trackview/processing/capture/cvcapture"
	"trackview/processing/detector"
	"trackview/processing/detector/onnx"
	"trackview/processing/session"
	"trackview/processing/tracker"
)

func main() {
	envErr := config.LoadEnv(".env")

	cfg := config.LoadConfigFile(config.ConfigPath())
	cfg.ApplyEnv()

	initLogger := logger.InitProduction
	if cfg.Development {
		initLogger = logger.InitDevelopment
	}
	if err := initLogger(cfg.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.Log()
	if envErr != nil {
		log.Warn("dotenv not loaded", zap.Error(envErr))
	}

	reg := registry.New(cfg)
	modelNames, err := reg.ListModels()
	if err != nil {
		log.Fatal("models list", zap.Error(err))
	}

	trackerCfg, err := tracker.LoadConfig(cfg.Detector.TrackerCfg)
	if err != nil {
		log.Fatal("tracker config", zap.Error(err))
	}

	fyneApp := app.New()

	display, err := ui.NewCanvasDisplay(cfg.Background, cfg.GetWidth(), cfg.GetHeight())
	if err != nil {
		log.Fatal("background image", zap.Error(err))
	}

	sess, err := session.New(session.Deps{
		Source:    capture.NewAdapter(cvcapture.NewOpener(cfg)),
		Invoker:   detector.NewInvoker(nil),
		Registry:  reg,
		Loader:    newLoader(cfg, trackerCfg),
		Scheduler: ui.FyneScheduler{},
		Display:   display,
	}, session.Options{
		Width:         cfg.GetWidth(),
		Height:        cfg.GetHeight(),
		SkipThreshold: cfg.GetSkipThreshold(),
		TickDelay:     cfg.GetTickDelay(),
	})
	if err != nil {
		log.Fatal("session", zap.Error(err))
	}

	if _, err := sess.SwitchModel(cfg.DefaultModel); err != nil {
		log.Fatal("default model", zap.Error(err))
	}

	log.Info("starting",
		zap.String("capture", cfg.CaptureBackend),
		zap.String("detector", cfg.Detector.Backend),
		zap.Strings("models", modelNames),
	)

	ui.CreateApp(fyneApp, sess, display, cfg, modelNames).Run()
}

func newLoader(cfg *config.Config, trackerCfg tracker.Config) detector.Loader {
	if cfg.Detector.Backend == config.DetectorRemote {
		return func(name, _ string) (detector.Model, error) {
			return detector.NewRemoteModel(cfg.Detector.RemoteHost, name), nil
		}
	}

	onnxCfg := onnx.DefaultConfig()
	if cfg.Detector.Confidence > 0 {
		onnxCfg.ConfidenceThresh = cfg.Detector.Confidence
	}
	if cfg.Detector.NMS > 0 {
		onnxCfg.NMSThresh = cfg.Detector.NMS
	}
	if cfg.Detector.InputSize > 0 {
		onnxCfg.InputSize = cfg.Detector.InputSize
	}

	return func(_, path string) (detector.Model, error) {
		var tr *tracker.Tracker
		if cfg.Detector.Tracking {
			tr = tracker.New(trackerCfg)
		}
		return onnx.New(path, onnxCfg, tr)
	}
}
