package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	wildtag "github.com/anatolykoptev/go-wildtag"
	"github.com/anatolykoptev/go-wildtag/internal/config"
	"github.com/anatolykoptev/go-wildtag/internal/logger"
	"github.com/anatolykoptev/go-wildtag/internal/store"
	"github.com/anatolykoptev/go-wildtag/onnx"
)

// app holds what every command needs: configuration, the logger and the
// resources to release on exit.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	closers []io.Closer
}

// newApp loads configuration honoring the global flags and installs the
// logger as the slog default.
func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}

	log, err := logger.NewWithFile(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log.Logger)

	return &app{cfg: cfg, log: log, closers: []io.Closer{log}}, nil
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// newProcessor initializes ONNX Runtime, loads every configured model and
// builds the processor.
func (a *app) newProcessor() (*wildtag.Processor, error) {
	if err := onnx.Init(a.cfg.ONNX.Library); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closerFunc(onnx.Shutdown))

	var animals, landscapes []wildtag.Model
	for _, mc := range a.cfg.Models {
		clf, err := onnx.New(mc.ONNXOptions(a.cfg.ONNX.ModelsDir))
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", mc.Name, err)
		}
		a.closers = append(a.closers, clf)

		m, err := mc.Model(clf)
		if err != nil {
			return nil, err
		}
		if mc.Role == config.RoleLandscape {
			landscapes = append(landscapes, m)
		} else {
			animals = append(animals, m)
		}
		a.log.Info("wildtag: model loaded", "name", mc.Name, "role", mc.Role,
			"size", fmt.Sprintf("%dx%d", mc.Width, mc.Height))
	}

	eng := a.cfg.Engine(animals, landscapes)
	if a.cfg.CacheSize > 0 {
		eng.Cache = wildtag.NewMemoryCache(a.cfg.CacheSize)
	}
	return wildtag.NewProcessor(eng)
}

// openStore opens the run history, or returns nil when history is disabled.
func (a *app) openStore() (*store.Store, error) {
	if !a.cfg.History.Enabled {
		return nil, nil
	}
	s, err := store.Open(a.cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	a.closers = append(a.closers, s)
	return s, nil
}
