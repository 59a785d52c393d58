// Package config loads wildtag CLI settings from defaults, an optional YAML
// file and WILDTAG_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	wildtag "github.com/anatolykoptev/go-wildtag"
	"github.com/anatolykoptev/go-wildtag/onnx"
)

// Model roles.
const (
	RoleAnimal    = "animal"
	RoleLandscape = "landscape"
)

// Report formats.
const (
	ReportJSON = "json"
	ReportHTML = "html"
	ReportBoth = "both"
)

// Config holds the CLI configuration.
type Config struct {
	InputDir         string   `envconfig:"WILDTAG_INPUT" yaml:"input_dir"`
	BackupDir        string   `envconfig:"WILDTAG_BACKUP" yaml:"backup_dir"`
	Extensions       []string `envconfig:"WILDTAG_EXTENSIONS" yaml:"extensions"`
	Workers          int      `envconfig:"WILDTAG_WORKERS" yaml:"workers"`
	Sort             bool     `envconfig:"WILDTAG_SORT" yaml:"sort"`
	DetectDuplicates bool     `envconfig:"WILDTAG_DETECT_DUPLICATES" yaml:"detect_duplicates"`
	Augment          bool     `envconfig:"WILDTAG_AUGMENT" yaml:"augment"`
	Report           string   `envconfig:"WILDTAG_REPORT" yaml:"report"`
	CacheSize        int      `envconfig:"WILDTAG_CACHE_SIZE" yaml:"cache_size"` // 0 = disabled

	Thresholds ThresholdConfig `yaml:"thresholds"`

	ONNX   ONNXConfig    `yaml:"onnx"`
	Models []ModelConfig `yaml:"models" ignored:"true"`

	// Category lists are ordered; order decides ties between categories.
	Animals    wildtag.CategoryMap `yaml:"animals" ignored:"true"`
	Landscapes wildtag.CategoryMap `yaml:"landscapes" ignored:"true"`

	History HistoryConfig `yaml:"history"`
	Watch   WatchConfig   `yaml:"watch"`
	Log     LogConfig     `yaml:"log"`
}

// ThresholdConfig holds acceptance thresholds.
type ThresholdConfig struct {
	Default    float64            `envconfig:"WILDTAG_THRESHOLD" yaml:"default"`
	Landscape  float64            `envconfig:"WILDTAG_LANDSCAPE_THRESHOLD" yaml:"landscape"`
	Categories map[string]float64 `envconfig:"WILDTAG_CATEGORY_THRESHOLDS" yaml:"categories"`
}

// ONNXConfig locates the runtime library and model files.
type ONNXConfig struct {
	Library   string `envconfig:"WILDTAG_ONNX_LIBRARY" yaml:"library"`
	ModelsDir string `envconfig:"WILDTAG_MODELS_DIR" yaml:"models_dir"`
}

// ModelConfig describes one ONNX classifier. Relative paths are resolved
// against ONNXConfig.ModelsDir.
type ModelConfig struct {
	Name      string `yaml:"name"`
	Role      string `yaml:"role"` // animal | landscape
	Path      string `yaml:"path"`
	Labels    string `yaml:"labels"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Normalize string `yaml:"normalize"` // tf | torch | caffe | none
	Layout    string `yaml:"layout"`    // nhwc | nchw
	TopK      int    `yaml:"top_k"`
	Softmax   bool   `yaml:"softmax"`
	Input     string `yaml:"input"`
	Output    string `yaml:"output"`
}

// HistoryConfig controls the SQLite run history.
type HistoryConfig struct {
	Enabled bool   `envconfig:"WILDTAG_HISTORY" yaml:"enabled"`
	Path    string `envconfig:"WILDTAG_HISTORY_PATH" yaml:"path"`
}

// WatchConfig controls scheduled processing.
type WatchConfig struct {
	Schedule string `envconfig:"WILDTAG_SCHEDULE" yaml:"schedule"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `envconfig:"WILDTAG_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"WILDTAG_LOG_FORMAT" yaml:"format"`
	File   string `envconfig:"WILDTAG_LOG_FILE" yaml:"file"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.InputDir = "test_images"
	cfg.Extensions = append([]string(nil), wildtag.DefaultExtensions...)
	cfg.Workers = 1
	cfg.Augment = true
	cfg.Report = ReportBoth

	t := wildtag.DefaultThresholds()
	cfg.Thresholds = ThresholdConfig{
		Default:    t.Default,
		Landscape:  wildtag.DefaultLandscapeMinConfidence,
		Categories: t.PerCategory,
	}

	cfg.ONNX = ONNXConfig{ModelsDir: "models"}
	cfg.Models = DefaultModels()
	cfg.Animals = wildtag.DefaultAnimalCategories()
	cfg.Landscapes = wildtag.DefaultLandscapeCategories()

	cfg.History = HistoryConfig{Enabled: true, Path: "wildtag.db"}
	cfg.Watch = WatchConfig{Schedule: "*/30 * * * *"}
	cfg.Log = LogConfig{Level: "info", Format: "text"}
}

// DefaultModels returns the three-model animal ensemble and the landscape
// model: ResNet50V2, EfficientNetB4 and DenseNet201 exported to ONNX.
func DefaultModels() []ModelConfig {
	const labels = "imagenet_labels.txt"
	return []ModelConfig{
		{Name: "resnet", Role: RoleAnimal, Path: "resnet50v2.onnx", Labels: labels,
			Width: 224, Height: 224, Normalize: wildtag.NormalizeTF, TopK: 10},
		{Name: "efficient", Role: RoleAnimal, Path: "efficientnetb4.onnx", Labels: labels,
			Width: 380, Height: 380, Normalize: wildtag.NormalizeNone, TopK: 10},
		{Name: "dense", Role: RoleAnimal, Path: "densenet201.onnx", Labels: labels,
			Width: 224, Height: 224, Normalize: wildtag.NormalizeTorch, TopK: 10},
		{Name: "landscape", Role: RoleLandscape, Path: "resnet50v2.onnx", Labels: labels,
			Width: 224, Height: 224, Normalize: wildtag.NormalizeTF, TopK: 15},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Workers < 1 {
		errs = append(errs, "workers must be positive")
	}
	if len(c.Extensions) == 0 {
		errs = append(errs, "extensions must not be empty")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Sprintf("extension %q must start with a dot", ext))
		}
	}

	validReports := map[string]bool{ReportJSON: true, ReportHTML: true, ReportBoth: true}
	if !validReports[c.Report] {
		errs = append(errs, fmt.Sprintf("invalid report format: %s (must be json, html, or both)", c.Report))
	}

	if !unit(c.Thresholds.Default) {
		errs = append(errs, "thresholds.default must be between 0 and 1")
	}
	if !unit(c.Thresholds.Landscape) {
		errs = append(errs, "thresholds.landscape must be between 0 and 1")
	}
	for name, v := range c.Thresholds.Categories {
		if !unit(v) {
			errs = append(errs, fmt.Sprintf("threshold for %s must be between 0 and 1", name))
		}
	}

	animals := 0
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if err := m.validate(); err != nil {
			errs = append(errs, err.Error())
		}
		if seen[m.Name] {
			errs = append(errs, fmt.Sprintf("duplicate model name: %s", m.Name))
		}
		seen[m.Name] = true
		if m.Role == RoleAnimal {
			animals++
		}
	}
	if animals == 0 {
		errs = append(errs, "at least one animal model is required")
	}

	if err := c.Animals.Validate(); err != nil {
		errs = append(errs, "animals: "+err.Error())
	}
	if err := c.Landscapes.Validate(); err != nil {
		errs = append(errs, "landscapes: "+err.Error())
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (m ModelConfig) validate() error {
	switch {
	case m.Name == "":
		return fmt.Errorf("model name is required")
	case m.Role != RoleAnimal && m.Role != RoleLandscape:
		return fmt.Errorf("model %s: invalid role %q (must be animal or landscape)", m.Name, m.Role)
	case m.Path == "" || m.Labels == "":
		return fmt.Errorf("model %s: path and labels are required", m.Name)
	case m.Width <= 0 || m.Height <= 0:
		return fmt.Errorf("model %s: width and height must be positive", m.Name)
	}
	if _, err := wildtag.NormalizerByName(m.Normalize); err != nil {
		return fmt.Errorf("model %s: %w", m.Name, err)
	}
	switch onnx.Layout(strings.ToLower(m.Layout)) {
	case "", onnx.LayoutNHWC, onnx.LayoutNCHW:
	default:
		return fmt.Errorf("model %s: invalid layout %q (must be nhwc or nchw)", m.Name, m.Layout)
	}
	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}

// ONNXOptions returns the classifier options for m.
func (m ModelConfig) ONNXOptions(modelsDir string) onnx.Options {
	return onnx.Options{
		Name:         m.Name,
		ModelPath:    resolve(modelsDir, m.Path),
		LabelsPath:   resolve(modelsDir, m.Labels),
		Width:        m.Width,
		Height:       m.Height,
		Layout:       onnx.Layout(m.Layout),
		InputName:    m.Input,
		OutputName:   m.Output,
		TopK:         m.TopK,
		ApplySoftmax: m.Softmax,
	}
}

// Model wraps classifier into a wildtag.Model using m's input size and
// normalization.
func (m ModelConfig) Model(classifier wildtag.Classifier) (wildtag.Model, error) {
	norm, err := wildtag.NormalizerByName(m.Normalize)
	if err != nil {
		return wildtag.Model{}, fmt.Errorf("model %s: %w", m.Name, err)
	}
	return wildtag.Model{
		Name:       m.Name,
		Width:      m.Width,
		Height:     m.Height,
		Normalize:  norm,
		Classifier: classifier,
	}, nil
}

func resolve(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Engine builds the processing configuration around the loaded models.
func (c *Config) Engine(animals, landscapes []wildtag.Model) wildtag.Config {
	augs := wildtag.DefaultAugmentations()
	if !c.Augment {
		augs = wildtag.IdentityOnly()
	}
	return wildtag.Config{
		AnimalModels:    animals,
		LandscapeModels: landscapes,
		Animals:         c.Animals,
		Landscapes:      c.Landscapes,
		Thresholds: wildtag.Thresholds{
			Default:     c.Thresholds.Default,
			PerCategory: c.Thresholds.Categories,
		},
		LandscapeMinConfidence: c.Thresholds.Landscape,
		ThresholdsSet:          true,
		Augmentations:          augs,
		Extensions:             c.Extensions,
		Workers:                c.Workers,
		BackupDir:              c.BackupDir,
		Sort:                   c.Sort,
		DetectDuplicates:       c.DetectDuplicates,
	}
}
