package wildtag

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleBatch() BatchResult {
	return BatchResult{
		Mode:     ModeProcess,
		InputDir: "/safari",
		Results: []ImageResult{
			{OriginalName: "a.jpg", NewName: "lion_river_20240105_0001.jpg", Category: "lion", Confidence: 0.9,
				Accepted: true, Success: true, Features: []string{"river"}},
			{OriginalName: "b.jpg", Category: "lion", Confidence: 0.7, Accepted: true, Success: true,
				Features: []string{"river", "savannah"}, DuplicateOf: "a.jpg"},
			{OriginalName: "c.jpg", Category: "bird", Confidence: 0.2, Err: ErrLowConfidence},
			{OriginalName: "d.jpg", Err: fmt.Errorf("%w: unexpected EOF", ErrDecode)},
			{OriginalName: "e.jpg", Err: fmt.Errorf("%w: disk full", ErrBackup)},
		},
	}
}

func TestBatchResult_Analyze(t *testing.T) {
	t.Parallel()

	s := sampleBatch().Analyze()
	if s.Total != 5 || s.Successful != 2 || s.Failed != 3 || s.Accepted != 2 || s.Duplicates != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.Animals["lion"] != 2 || s.Animals["bird"] != 1 {
		t.Errorf("Animals = %v", s.Animals)
	}
	if s.Landscapes["river"] != 2 || s.Landscapes["savannah"] != 1 {
		t.Errorf("Landscapes = %v", s.Landscapes)
	}
	// Zero confidences are excluded from the average.
	if !approx(s.AvgConfidence, (0.9+0.7+0.2)/3) {
		t.Errorf("AvgConfidence = %v", s.AvgConfidence)
	}
	for _, sentinel := range []error{ErrLowConfidence, ErrDecode, ErrBackup} {
		if s.ErrorTypes[sentinel.Error()] != 1 {
			t.Errorf("ErrorTypes[%q] = %d, want 1", sentinel, s.ErrorTypes[sentinel.Error()])
		}
	}
}

func TestBatchResult_AnalyzeEmpty(t *testing.T) {
	t.Parallel()
	s := BatchResult{}.Analyze()
	if s.Total != 0 || s.AvgConfidence != 0 || s.Animals == nil {
		t.Errorf("empty stats = %+v", s)
	}
}

func TestErrorType_Unknown(t *testing.T) {
	t.Parallel()
	if got := errorType(errors.New("odd failure")); got != "odd failure" {
		t.Errorf("errorType() = %q", got)
	}
}

func TestWriteJSONReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	at := time.Date(2024, 1, 5, 14, 30, 5, 0, time.UTC)
	path, err := WriteJSONReport(dir, sampleBatch(), at)
	if err != nil {
		t.Fatalf("WriteJSONReport() error = %v", err)
	}
	if filepath.Base(path) != "processing_report_20240105_143005.json" {
		t.Errorf("path = %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rep struct {
		Timestamp   string `json:"timestamp"`
		Mode        string `json:"mode"`
		TotalImages int    `json:"total_images"`
		Successful  int    `json:"successful"`
		Failed      int    `json:"failed"`
		Results     []struct {
			OriginalName string   `json:"original_name"`
			Animal       string   `json:"animal"`
			Features     []string `json:"landscape_features"`
			Error        string   `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if rep.Timestamp != "20240105_143005" || rep.Mode != "process" {
		t.Errorf("header = %s %s", rep.Timestamp, rep.Mode)
	}
	if rep.TotalImages != 5 || rep.Successful != 2 || rep.Failed != 3 {
		t.Errorf("totals = %d/%d/%d", rep.TotalImages, rep.Successful, rep.Failed)
	}
	if rep.Results[0].Animal != "lion" || rep.Results[0].Features[0] != "river" {
		t.Errorf("first result = %+v", rep.Results[0])
	}
	if rep.Results[2].Error != ErrLowConfidence.Error() {
		t.Errorf("error text = %q", rep.Results[2].Error)
	}
	if !strings.Contains(string(data), "\n    \"timestamp\"") {
		t.Error("report should be indented with four spaces")
	}
}

func TestWriteHTMLReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	at := time.Date(2024, 1, 5, 14, 30, 5, 0, time.UTC)
	batch := sampleBatch()
	batch.Results = append(batch.Results, ImageResult{OriginalName: "<script>.jpg", Err: ErrDecode})

	path, err := WriteHTMLReport(dir, batch, at)
	if err != nil {
		t.Fatalf("WriteHTMLReport() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	html := string(data)

	for _, want := range []string{
		"Total Images: 6",
		"lion_river_20240105_0001.jpg",
		"Landscape Features: river, savannah",
		"Landscape Features: None detected",
		"Confidence: N/A",
		"Duplicate of: a.jpg",
		"Error: low confidence prediction",
		"&lt;script&gt;.jpg",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html report missing %q", want)
		}
	}
	if strings.Contains(html, "<script>.jpg") {
		t.Error("file names must be escaped")
	}
}

func TestWriteReports_BadDir(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "missing")
	if _, err := WriteJSONReport(dir, sampleBatch(), time.Now()); err == nil {
		t.Error("json: expected error for missing directory")
	}
	if _, err := WriteHTMLReport(dir, sampleBatch(), time.Now()); err == nil {
		t.Error("html: expected error for missing directory")
	}
}
