package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"time"
)

// UnknownLabel replaces the top label of an image whose best score falls
// below the job's confidence threshold.
const UnknownLabel = "unknown"

// Prediction is a single ranked (label, score) pair.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ImageResult is the outcome of classifying one image.
type ImageResult struct {
	Filename string `json:"filename"`
	Key      string `json:"s3_key"`

	// TopPrediction is the resolved label used for grouping. It is UnknownLabel
	// when TopConfidence is below the job threshold.
	TopPrediction string  `json:"top_prediction"`
	TopConfidence float64 `json:"top_confidence"`

	// AllPredictions is the classifier ranking, unmodified by thresholding.
	AllPredictions   []Prediction `json:"all_predictions"`
	ProcessingTimeMS float64      `json:"processing_time_ms"`

	// Reason is set only when TopPrediction was overridden to UnknownLabel.
	Reason string `json:"reason,omitempty"`
}

// IsUnknown reports whether the image was resolved to UnknownLabel.
func (r ImageResult) IsUnknown() bool {
	return r.TopPrediction == UnknownLabel
}

// FilenameFromKey returns the last path segment of an object key.
func FilenameFromKey(key string) string {
	return path.Base("/" + key)
}

// Milliseconds converts a duration into the fractional milliseconds used on the wire.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// BatchSummary counts the outcomes of one batch.
type BatchSummary struct {
	Total      int `json:"total"`
	Classified int `json:"classified"`
	Unknown    int `json:"unknown"`
}

// Summarize computes the summary of a list of image results.
func Summarize(results []ImageResult) BatchSummary {
	summary := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.IsUnknown() {
			summary.Unknown++
		}
	}
	summary.Classified = summary.Total - summary.Unknown
	return summary
}

// LabelGroup lists the filenames resolved to one label.
type LabelGroup struct {
	Label     string
	Filenames []string
}

// GroupedLabels maps resolved labels to filenames, keeping labels in
// first-seen order and filenames in insertion order. It encodes as a JSON
// object whose keys appear in that order.
type GroupedLabels []LabelGroup

// GroupByLabel groups the filenames of results by resolved top label.
func GroupByLabel(results []ImageResult) GroupedLabels {
	var groups GroupedLabels
	for _, r := range results {
		groups.Add(r.TopPrediction, r.Filename)
	}
	return groups
}

// Add appends filename to the group of label, creating the group if needed.
func (g *GroupedLabels) Add(label, filename string) {
	for i := range *g {
		if (*g)[i].Label == label {
			(*g)[i].Filenames = append((*g)[i].Filenames, filename)
			return
		}
	}
	*g = append(*g, LabelGroup{Label: label, Filenames: []string{filename}})
}

// Get returns the filenames grouped under label.
func (g GroupedLabels) Get(label string) []string {
	for _, group := range g {
		if group.Label == label {
			return group.Filenames
		}
	}
	return nil
}

// Labels returns the labels in first-seen order.
func (g GroupedLabels) Labels() []string {
	labels := make([]string, len(g))
	for i, group := range g {
		labels[i] = group.Label
	}
	return labels
}

// Total returns the number of filenames across all groups.
func (g GroupedLabels) Total() int {
	n := 0
	for _, group := range g {
		n += len(group.Filenames)
	}
	return n
}

// MarshalJSON encodes the groups as an ordered JSON object.
func (g GroupedLabels) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, group := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(group.Label)
		if err != nil {
			return nil, err
		}
		filenames := group.Filenames
		if filenames == nil {
			filenames = []string{}
		}
		value, err := json.Marshal(filenames)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object of label -> filenames, keeping key order.
func (g *GroupedLabels) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*g = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("grouped labels: expected object, got %v", tok)
	}

	groups := GroupedLabels{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("grouped labels: expected string key, got %v", keyTok)
		}
		var filenames []string
		if err := dec.Decode(&filenames); err != nil {
			return fmt.Errorf("grouped labels: label %q: %w", label, err)
		}
		groups = append(groups, LabelGroup{Label: label, Filenames: filenames})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*g = groups
	return nil
}

// BatchResult is the structured response for one job.
type BatchResult struct {
	Success          bool          `json:"success"`
	JobID            string        `json:"job_id"`
	JobType          JobKind       `json:"job_type"`
	ModelUsed        string        `json:"model_used"`
	TotalImages      int           `json:"total_images"`
	ProcessingTimeMS float64       `json:"processing_time_ms"`
	GroupedByLabel   GroupedLabels `json:"grouped_by_label"`
	DetailedResults  []ImageResult `json:"detailed_results"`
	Summary          BatchSummary  `json:"summary"`
}
