package onnx

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var errNoLabels = errors.New("labels file is empty")

// LoadLabels reads one class label per line. Accepted line forms:
//
//	African_elephant
//	386,African_elephant
//	n02504458 African_elephant
//
// Blank lines and lines starting with '#' are skipped. A ".json" file is read
// as a Keras class index instead (see parseClassIndex).
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return parseClassIndex(data)
	}

	var labels []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, parseLabel(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, errNoLabels
	}
	return labels, nil
}

func parseLabel(line string) string {
	if i := strings.IndexByte(line, ','); i >= 0 && isDigits(line[:i]) {
		return strings.TrimSpace(line[i+1:])
	}
	// WordNet synset id prefix: "n02504458 African_elephant".
	if len(line) > 10 && line[0] == 'n' && isDigits(line[1:9]) && line[9] == ' ' {
		return strings.TrimSpace(line[10:])
	}
	return line
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseClassIndex reads a Keras imagenet_class_index.json style document:
//
//	{"0": ["n01440764", "tench"], "1": ["n01443537", "goldfish"]}
//
// A plain JSON array of label strings is accepted too. Every index from 0 to
// the highest one must be present.
func parseClassIndex(data []byte) ([]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("labels: invalid JSON")
	}
	root := gjson.ParseBytes(data)

	var labels []string
	if root.IsArray() {
		for _, v := range root.Array() {
			labels = append(labels, v.String())
		}
	} else {
		byIndex := map[int]string{}
		var bad string
		root.ForEach(func(key, value gjson.Result) bool {
			idx, err := strconv.Atoi(key.String())
			if err != nil || idx < 0 {
				bad = key.String()
				return false
			}
			// ["wnid", "label"]: the label is the last element.
			if value.IsArray() {
				arr := value.Array()
				if len(arr) == 0 {
					bad = key.String()
					return false
				}
				value = arr[len(arr)-1]
			}
			byIndex[idx] = value.String()
			return true
		})
		if bad != "" {
			return nil, fmt.Errorf("labels: bad class index entry %q", bad)
		}
		labels = make([]string, len(byIndex))
		for idx, label := range byIndex {
			if idx >= len(labels) {
				return nil, fmt.Errorf("labels: class index has gaps (max %d, %d entries)", idx, len(byIndex))
			}
			labels[idx] = label
		}
	}
	if len(labels) == 0 {
		return nil, errNoLabels
	}
	return labels, nil
}
