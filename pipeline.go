package wildtag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrLowConfidence marks an image whose best category did not clear its threshold.
	ErrLowConfidence = errors.New("low confidence prediction")
	// ErrBackup marks an image that was skipped because its backup copy failed.
	ErrBackup = errors.New("backup failed")
	// ErrTargetExists marks an accepted image whose new name is already taken.
	ErrTargetExists = errors.New("target file already exists")
)

// Mode selects what ProcessFile does with a classified image.
type Mode int

const (
	ModeProcess Mode = iota // back up, tag, rename
	ModePreview             // classify and gate only; files are not touched
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "process"
}

// Analysis is everything learned about one image's content. It depends only
// on the file bytes, so it is cached by content hash.
type Analysis struct {
	Result   ClassificationResult `json:"result"`
	Scores   AggregatedScore      `json:"scores"`
	Features []string             `json:"features"`
	Hash     uint64               `json:"hash"`
	HasHash  bool                 `json:"has_hash"`
	Metadata *ImageMetadata       `json:"metadata,omitempty"`
}

// ImageResult is the outcome for one input image.
type ImageResult struct {
	Path         string          `json:"path"`
	OriginalName string          `json:"original_name"`
	NewName      string          `json:"new_name,omitempty"`
	Category     string          `json:"animal,omitempty"`
	Confidence   float64         `json:"confidence"`
	Threshold    float64         `json:"threshold"`
	Accepted     bool            `json:"accepted"`
	Success      bool            `json:"success"`
	Features     []string        `json:"landscape_features"`
	Scores       AggregatedScore `json:"scores,omitempty"`
	DuplicateOf  string          `json:"duplicate_of,omitempty"`
	Metadata     *ImageMetadata  `json:"metadata,omitempty"`
	Err          error           `json:"-"`
}

// ErrorMessage returns the error text, or "" when the image succeeded.
func (r ImageResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// BatchResult collects the results of one run over a set of images.
type BatchResult struct {
	Mode       Mode          `json:"-"`
	InputDir   string        `json:"input_dir"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Results    []ImageResult `json:"results"`
}

// Successful counts results marked successful.
func (b BatchResult) Successful() int {
	n := 0
	for _, r := range b.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// Failed counts results not marked successful.
func (b BatchResult) Failed() int {
	return len(b.Results) - b.Successful()
}

// Processor classifies, tags and renames images. It owns its predictors and
// the per-run sequence counter used for naming.
type Processor struct {
	cfg       Config
	animals   *Predictor
	landscape *Predictor // nil = no landscape models

	mu  sync.Mutex
	seq int
}

// NewProcessor validates cfg and builds the predictors.
func NewProcessor(cfg Config) (*Processor, error) {
	cfg.defaults()

	if err := cfg.Animals.Validate(); err != nil {
		return nil, fmt.Errorf("animal categories: %w", err)
	}
	if err := cfg.Landscapes.Validate(); err != nil {
		return nil, fmt.Errorf("landscape categories: %w", err)
	}

	animals, err := NewPredictor(cfg.AnimalModels, cfg.Augmentations)
	if err != nil {
		return nil, fmt.Errorf("animal predictor: %w", err)
	}
	p := &Processor{cfg: cfg, animals: animals}

	if len(cfg.LandscapeModels) > 0 {
		p.landscape, err = NewPredictor(cfg.LandscapeModels, IdentityOnly())
		if err != nil {
			return nil, fmt.Errorf("landscape predictor: %w", err)
		}
	}
	return p, nil
}

// Sequence returns the number of images renamed so far.
func (p *Processor) Sequence() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq
}

// Analyze classifies the image at path without modifying it.
func (p *Processor) Analyze(ctx context.Context, path string) (Analysis, error) {
	img, data, err := LoadImage(path)
	if err != nil {
		return Analysis{}, err
	}

	var cacheKey string
	if p.cfg.Cache != nil {
		sum := sha256.Sum256(data)
		cacheKey = p.cfg.Cache.Key("wildtag_analysis", hex.EncodeToString(sum[:]))
		var cached Analysis
		if p.cfg.Cache.Get(ctx, cacheKey, &cached) {
			slog.Debug("wildtag: analysis cache hit", "file", filepath.Base(path))
			return cached, nil
		}
	}

	preds, err := p.animals.Predict(ctx, img)
	if err != nil {
		return Analysis{}, err
	}
	scores := Aggregate(preds, p.cfg.Animals, p.cfg.TopScores)
	a := Analysis{
		Result: scores.Best(),
		Scores: scores,
	}

	if p.landscape != nil {
		lpreds, err := p.landscape.Predict(ctx, img)
		if err != nil {
			return Analysis{}, err
		}
		a.Features = DetectFeatures(lpreds, p.cfg.Landscapes, p.cfg.LandscapeMinConfidence)
	}

	if p.cfg.DetectDuplicates {
		a.Hash, a.HasHash = perceptualHash(img)
	}
	a.Metadata = ExtractImageMetadata(data)

	slog.Debug("wildtag: analyzed", "file", filepath.Base(path),
		"predictions", len(preds), "category", a.Result.Category, "confidence", a.Result.Confidence)

	if p.cfg.Cache != nil {
		p.cfg.Cache.Set(ctx, cacheKey, a)
	}
	return a, nil
}

// ProcessFile handles a single image according to mode.
func (p *Processor) ProcessFile(ctx context.Context, path string, mode Mode) ImageResult {
	return p.processOne(ctx, path, mode, nil, nil)
}

// ProcessDir handles every supported image directly inside dir.
// The error is non-nil only when dir cannot be listed; per-image failures
// are reported in the results.
func (p *Processor) ProcessDir(ctx context.Context, dir string, mode Mode) (BatchResult, error) {
	paths, err := ListImages(dir, p.cfg.Extensions)
	if err != nil {
		return BatchResult{Mode: mode, InputDir: dir}, err
	}
	slog.Info("wildtag: found images", "dir", dir, "count", len(paths), "mode", mode.String())

	batch := p.ProcessFiles(ctx, paths, mode)
	batch.InputDir = dir
	return batch, nil
}

type analysisOutcome struct {
	analysis Analysis
	err      error
}

// ProcessFiles handles paths in order. With more than one worker the
// analyses run in parallel first; backups, renames and numbering always
// happen sequentially in input order.
func (p *Processor) ProcessFiles(ctx context.Context, paths []string, mode Mode) BatchResult {
	batch := BatchResult{Mode: mode, StartedAt: p.cfg.Now()}
	var dedup *dedupFilter
	if p.cfg.DetectDuplicates {
		dedup = &dedupFilter{}
	}

	var pre []analysisOutcome
	if p.cfg.Workers > 1 && len(paths) > 1 {
		pre = p.analyzeAll(ctx, paths)
	}

	for i, path := range paths {
		var outcome *analysisOutcome
		if pre != nil {
			outcome = &pre[i]
		}
		r := p.processOne(ctx, path, mode, outcome, dedup)
		batch.Results = append(batch.Results, r)
	}

	batch.FinishedAt = p.cfg.Now()
	slog.Info("wildtag: batch complete", "total", len(batch.Results),
		"successful", batch.Successful(), "failed", batch.Failed())
	return batch
}

func (p *Processor) analyzeAll(ctx context.Context, paths []string) []analysisOutcome {
	out := make([]analysisOutcome, len(paths))

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i, path := range paths {
		g.Go(func() error {
			a, err := p.Analyze(ctx, path)
			out[i] = analysisOutcome{analysis: a, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *Processor) processOne(ctx context.Context, path string, mode Mode, pre *analysisOutcome, dedup *dedupFilter) (res ImageResult) {
	res = ImageResult{Path: path, OriginalName: filepath.Base(path)}
	defer func() {
		if res.Err != nil {
			slog.Warn("wildtag: image not processed", "file", res.OriginalName, "error", res.Err.Error())
		}
		if p.cfg.OnResult != nil {
			p.cfg.OnResult(res)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	slog.Info("wildtag: processing", "file", res.OriginalName)

	if mode == ModeProcess {
		backupDir := p.cfg.BackupDir
		if backupDir == "" {
			backupDir = NewLayout(filepath.Dir(path)).Backup
		}
		if _, err := Backup(path, backupDir); err != nil {
			res.Err = fmt.Errorf("%w: %v", ErrBackup, err)
			return res
		}
		slog.Debug("wildtag: backup created", "file", res.OriginalName, "dir", backupDir)
	}

	var a Analysis
	if pre != nil {
		if pre.err != nil {
			res.Err = pre.err
			return res
		}
		a = pre.analysis
	} else {
		var err error
		if a, err = p.Analyze(ctx, path); err != nil {
			res.Err = err
			return res
		}
	}

	res.Category = a.Result.Category
	res.Confidence = a.Result.Confidence
	res.Features = a.Features
	res.Scores = a.Scores
	res.Metadata = a.Metadata
	res.Threshold = p.cfg.Thresholds.For(a.Result.Category)
	res.Accepted = p.cfg.Thresholds.Accept(a.Result)
	if dedup != nil && a.HasHash {
		res.DuplicateOf = dedup.duplicateOf(a.Hash, res.OriginalName)
	}

	if mode == ModePreview {
		res.Success = res.Accepted
		if !res.Accepted {
			res.Err = ErrLowConfidence
		}
		return res
	}

	if !res.Accepted {
		res.Err = ErrLowConfidence
		if p.cfg.Sort {
			res.Path = p.moveRejected(path)
		}
		return res
	}

	newPath, err := p.rename(path, a)
	if err != nil {
		res.Err = err
		return res
	}
	res.NewName = filepath.Base(newPath)
	res.Path = newPath
	res.Success = true
	slog.Info("wildtag: renamed", "from", res.OriginalName, "to", res.NewName,
		"category", res.Category, "confidence", res.Confidence)
	return res
}

// rename stamps the metadata comment and moves an accepted image to its new
// name. The sequence counter advances only when the rename succeeds.
func (p *Processor) rename(path string, a Analysis) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.cfg.Now()
	seq := p.seq + 1
	name := NewFileName(path, a.Result.Category, a.Features, now, seq)

	dir := filepath.Dir(path)
	if p.cfg.Sort {
		dir = NewLayout(dir).Processed
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", dir, err)
		}
	}
	target := filepath.Join(dir, name)
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("%w: %s", ErrTargetExists, name)
	}

	comment := BuildComment(a.Result, a.Features, now)
	if err := WriteComment(path, comment); err != nil {
		if errors.Is(err, ErrMetadataUnsupported) {
			slog.Debug("wildtag: metadata skipped", "file", filepath.Base(path), "error", err.Error())
		} else {
			slog.Warn("wildtag: failed to add metadata", "file", filepath.Base(path), "error", err.Error())
		}
	}

	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("rename: %w", err)
	}
	p.seq = seq
	return target, nil
}

// moveRejected moves a rejected image into rejected/ and returns where it
// ended up. Failures leave the file in place.
func (p *Processor) moveRejected(path string) string {
	dir := NewLayout(filepath.Dir(path)).Rejected
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("wildtag: cannot create rejected dir", "dir", dir, "error", err.Error())
		return path
	}
	target := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		slog.Warn("wildtag: cannot move rejected image", "file", filepath.Base(path), "error", err.Error())
		return path
	}
	return target
}
