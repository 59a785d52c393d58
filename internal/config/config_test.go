package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anatolykoptev/go-wildtag/onnx"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wildtag.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Thresholds.Default != 0.35 {
		t.Errorf("Thresholds.Default = %v, want 0.35", cfg.Thresholds.Default)
	}
	if cfg.Thresholds.Landscape != 0.15 {
		t.Errorf("Thresholds.Landscape = %v, want 0.15", cfg.Thresholds.Landscape)
	}
	if cfg.Thresholds.Categories["lion_cub"] != 0.3 || cfg.Thresholds.Categories["bird"] != 0.4 {
		t.Errorf("Thresholds.Categories = %v", cfg.Thresholds.Categories)
	}
	if len(cfg.Models) != 4 {
		t.Errorf("len(Models) = %d, want 4", len(cfg.Models))
	}
	if len(cfg.Animals) != 16 || len(cfg.Landscapes) != 9 {
		t.Errorf("categories = %d animals, %d landscapes", len(cfg.Animals), len(cfg.Landscapes))
	}
	if cfg.Report != ReportBoth || cfg.Workers != 1 {
		t.Errorf("Report = %s, Workers = %d", cfg.Report, cfg.Workers)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WILDTAG_WORKERS", "4")
	t.Setenv("WILDTAG_LOG_LEVEL", "debug")
	t.Setenv("WILDTAG_THRESHOLD", "0.5")
	t.Setenv("WILDTAG_REPORT", "both")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
	if cfg.Thresholds.Default != 0.5 {
		t.Errorf("Thresholds.Default = %v, want 0.5", cfg.Thresholds.Default)
	}
	if cfg.Report != ReportBoth {
		t.Errorf("Report = %s, want both", cfg.Report)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
input_dir: /photos/safari
sort: true
thresholds:
  default: 0.5
  categories:
    zebra: 0.6
onnx:
  models_dir: /opt/models
models:
  - name: mobilenet
    role: animal
    path: mobilenet.onnx
    labels: labels.txt
    width: 224
    height: 224
    normalize: tf
    layout: NCHW
animals:
  - name: zebra
    keywords: [zebra]
  - name: lion
    keywords: [lion, lioness]
log:
  level: warn
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.InputDir != "/photos/safari" || !cfg.Sort {
		t.Errorf("InputDir = %s, Sort = %v", cfg.InputDir, cfg.Sort)
	}
	if cfg.Thresholds.Default != 0.5 {
		t.Errorf("Thresholds.Default = %v, want 0.5", cfg.Thresholds.Default)
	}
	if cfg.Thresholds.Categories["zebra"] != 0.6 {
		t.Errorf("zebra threshold = %v, want 0.6", cfg.Thresholds.Categories["zebra"])
	}
	if len(cfg.Models) != 1 || cfg.Models[0].Name != "mobilenet" {
		t.Fatalf("Models = %+v, want only mobilenet", cfg.Models)
	}
	if len(cfg.Animals) != 2 || cfg.Animals[0].Name != "zebra" {
		t.Errorf("Animals = %+v, want file order", cfg.Animals)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %s, want json", cfg.Log.Format)
	}

	opts := cfg.Models[0].ONNXOptions(cfg.ONNX.ModelsDir)
	if opts.ModelPath != filepath.Join("/opt/models", "mobilenet.onnx") {
		t.Errorf("ModelPath = %s", opts.ModelPath)
	}
	if opts.Layout != onnx.Layout("NCHW") {
		t.Errorf("Layout = %s, want NCHW as written", opts.Layout)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"bad report", func(c *Config) { c.Report = "pdf" }, "report"},
		{"extension without dot", func(c *Config) { c.Extensions = []string{"jpg"} }, "dot"},
		{"threshold above one", func(c *Config) { c.Thresholds.Default = 1.5 }, "thresholds.default"},
		{"bad category threshold", func(c *Config) { c.Thresholds.Categories = map[string]float64{"bird": -1} }, "bird"},
		{"no animal models", func(c *Config) { c.Models = c.Models[3:] }, "animal model"},
		{"bad normalize", func(c *Config) { c.Models[0].Normalize = "zscore" }, "normalization"},
		{"bad layout", func(c *Config) { c.Models[0].Layout = "chw" }, "layout"},
		{"bad role", func(c *Config) { c.Models[0].Role = "plant" }, "role"},
		{"duplicate model", func(c *Config) { c.Models[1].Name = c.Models[0].Name }, "duplicate model"},
		{"zero size", func(c *Config) { c.Models[0].Width = 0 }, "width"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log level"},
		{"history without path", func(c *Config) { c.History.Path = "" }, "history.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			if err := cfg.Validate(); err != nil {
				t.Fatalf("defaults invalid: %v", err)
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestEngine(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Augment = false
	cfg.Workers = 3

	eng := cfg.Engine(nil, nil)
	if len(eng.Augmentations) != 1 {
		t.Errorf("Augmentations = %d, want identity only", len(eng.Augmentations))
	}
	if eng.Workers != 3 {
		t.Errorf("Workers = %d, want 3", eng.Workers)
	}
	if eng.Thresholds.For("bird") != 0.4 || eng.Thresholds.For("zebra") != 0.35 {
		t.Errorf("Thresholds = %+v", eng.Thresholds)
	}
	if eng.LandscapeMinConfidence != 0.15 {
		t.Errorf("LandscapeMinConfidence = %v", eng.LandscapeMinConfidence)
	}
}

func TestEngine_ZeroThresholdsKept(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Thresholds.Default = 0
	cfg.Thresholds.Categories = map[string]float64{}
	cfg.Thresholds.Landscape = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	eng := cfg.Engine(nil, nil)
	if !eng.ThresholdsSet {
		t.Fatal("Engine() must mark thresholds as configured")
	}
	if eng.Thresholds.For("zebra") != 0 {
		t.Errorf("For(zebra) = %v, want 0", eng.Thresholds.For("zebra"))
	}
	if eng.LandscapeMinConfidence != 0 {
		t.Errorf("LandscapeMinConfidence = %v, want 0", eng.LandscapeMinConfidence)
	}
}

func TestModelConfig_Model(t *testing.T) {
	m := DefaultModels()[2]
	model, err := m.Model(nil)
	if err != nil {
		t.Fatalf("Model() error = %v", err)
	}
	if model.Name != "dense" || model.Width != 224 || model.Normalize == nil {
		t.Errorf("Model() = %+v", model)
	}

	m.Normalize = "bogus"
	if _, err := m.Model(nil); err == nil {
		t.Error("expected error for unknown normalization")
	}
}

func TestResolve(t *testing.T) {
	if got := resolve("models", "/abs/m.onnx"); got != "/abs/m.onnx" {
		t.Errorf("resolve(abs) = %s", got)
	}
	if got := resolve("", "m.onnx"); got != "m.onnx" {
		t.Errorf("resolve(no dir) = %s", got)
	}
	if got := resolve("models", "m.onnx"); got != filepath.Join("models", "m.onnx") {
		t.Errorf("resolve(rel) = %s", got)
	}
}
