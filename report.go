package wildtag

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"
)

// reportTimestampLayout is used in report file names and headers.
const reportTimestampLayout = "20060102_150405"

// Stats summarizes a batch.
type Stats struct {
	Total         int            `json:"total"`
	Successful    int            `json:"successful"`
	Failed        int            `json:"failed"`
	Accepted      int            `json:"accepted"`
	Duplicates    int            `json:"duplicates"`
	Animals       map[string]int `json:"animals"`
	Landscapes    map[string]int `json:"landscapes"`
	AvgConfidence float64        `json:"avg_confidence"`
	ErrorTypes    map[string]int `json:"error_types"`
}

// Analyze computes summary statistics for a batch. The average confidence
// covers only results with a non-zero confidence.
func (b BatchResult) Analyze() Stats {
	s := Stats{
		Total:      len(b.Results),
		Animals:    make(map[string]int),
		Landscapes: make(map[string]int),
		ErrorTypes: make(map[string]int),
	}

	var sum float64
	var n int
	for _, r := range b.Results {
		if r.Success {
			s.Successful++
		}
		if r.Accepted {
			s.Accepted++
		}
		if r.DuplicateOf != "" {
			s.Duplicates++
		}
		if r.Category != "" {
			s.Animals[r.Category]++
		}
		for _, f := range r.Features {
			s.Landscapes[f]++
		}
		if r.Confidence > 0 {
			sum += r.Confidence
			n++
		}
		if r.Err != nil {
			s.ErrorTypes[errorType(r.Err)]++
		}
	}
	s.Failed = s.Total - s.Successful
	if n > 0 {
		s.AvgConfidence = sum / float64(n)
	}
	return s
}

// errorType groups errors by their sentinel so counts stay meaningful.
func errorType(err error) string {
	for _, sentinel := range []error{ErrLowConfidence, ErrBackup, ErrDecode, ErrTargetExists} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// reportResult is the serialized form of an ImageResult.
type reportResult struct {
	ImageResult
	Error string `json:"error,omitempty"`
}

type jsonReport struct {
	Timestamp   string         `json:"timestamp"`
	Mode        string         `json:"mode"`
	InputDir    string         `json:"input_dir,omitempty"`
	TotalImages int            `json:"total_images"`
	Successful  int            `json:"successful"`
	Failed      int            `json:"failed"`
	Stats       Stats          `json:"stats"`
	Results     []reportResult `json:"results"`
}

// WriteJSONReport writes processing_report_<timestamp>.json into dir and
// returns its path.
func WriteJSONReport(dir string, b BatchResult, at time.Time) (string, error) {
	stats := b.Analyze()
	rep := jsonReport{
		Timestamp:   at.Format(reportTimestampLayout),
		Mode:        b.Mode.String(),
		InputDir:    b.InputDir,
		TotalImages: stats.Total,
		Successful:  stats.Successful,
		Failed:      stats.Failed,
		Stats:       stats,
		Results:     make([]reportResult, 0, len(b.Results)),
	}
	for _, r := range b.Results {
		rep.Results = append(rep.Results, reportResult{ImageResult: r, Error: r.ErrorMessage()})
	}

	data, err := json.MarshalIndent(rep, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	path := reportPath(dir, at, ".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"confidence": func(r ImageResult) string {
		if r.Confidence == 0 {
			return "N/A"
		}
		return fmt.Sprintf("%.3f", r.Confidence)
	},
	"features": func(fs []string) string {
		if len(fs) == 0 {
			return "None detected"
		}
		return featureList(fs, ", ")
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Safari Image Processing Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .summary { background-color: #f0f0f0; padding: 15px; margin-bottom: 20px; }
        .results { display: grid; grid-template-columns: repeat(auto-fill, minmax(300px, 1fr)); gap: 20px; }
        .result-card { border: 1px solid #ddd; padding: 15px; }
        .success { color: green; }
        .error { color: red; }
    </style>
</head>
<body>
    <h1>Safari Image Processing Report</h1>
    <div class="summary">
        <h2>Summary</h2>
        <p>Processed at: {{.Timestamp}}</p>
        <p>Mode: {{.Mode}}</p>
        <p>Total Images: {{.Stats.Total}}</p>
        <p>Successful: {{.Stats.Successful}}</p>
        <p>Failed: {{.Stats.Failed}}</p>
        <p>Average Confidence: {{printf "%.3f" .Stats.AvgConfidence}}</p>
    </div>
    <div class="results">
{{- range .Results}}
        <div class="result-card">
            <h3>{{.OriginalName}}</h3>
            <p class="{{if .Success}}success{{else}}error{{end}}">Status: {{if .Success}}Success{{else}}Failed{{end}}</p>
            <p>Animal: {{if .Category}}{{.Category}}{{else}}Not detected{{end}}</p>
            <p>Confidence: {{confidence .ImageResult}}</p>
            <p>Landscape Features: {{features .Features}}</p>
            {{- if .NewName}}
            <p>New Name: {{.NewName}}</p>
            {{- end}}
            {{- if .DuplicateOf}}
            <p>Duplicate of: {{.DuplicateOf}}</p>
            {{- end}}
            {{- if .Error}}
            <p class="error">Error: {{.Error}}</p>
            {{- end}}
        </div>
{{- end}}
    </div>
</body>
</html>
`))

type htmlData struct {
	Timestamp string
	Mode      string
	Stats     Stats
	Results   []reportResult
}

// WriteHTMLReport renders processing_report_<timestamp>.html into dir and
// returns its path.
func WriteHTMLReport(dir string, b BatchResult, at time.Time) (string, error) {
	data := htmlData{
		Timestamp: at.Format(reportTimestampLayout),
		Mode:      b.Mode.String(),
		Stats:     b.Analyze(),
	}
	for _, r := range b.Results {
		data.Results = append(data.Results, reportResult{ImageResult: r, Error: r.ErrorMessage()})
	}

	path := reportPath(dir, at, ".html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := htmlReport.Execute(f, data); err != nil {
		f.Close()
		return "", fmt.Errorf("render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}

func reportPath(dir string, at time.Time, ext string) string {
	return filepath.Join(dir, "processing_report_"+at.Format(reportTimestampLayout)+ext)
}
