package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilenameFromKey(t *testing.T) {
	assert.Equal(t, "dog.jpg", FilenameFromKey("input/dog.jpg"))
	assert.Equal(t, "dog.jpg", FilenameFromKey("a/b/c/dog.jpg"))
	assert.Equal(t, "cat.png", FilenameFromKey("cat.png"))
}

func TestMilliseconds(t *testing.T) {
	assert.InDelta(t, 1.5, Milliseconds(1500*time.Microsecond), 1e-9)
}

func TestSummarizeAndGroup(t *testing.T) {
	results := []ImageResult{
		{Filename: "a.jpg", TopPrediction: "cat"},
		{Filename: "b.jpg", TopPrediction: UnknownLabel},
		{Filename: "c.jpg", TopPrediction: "dog"},
		{Filename: "d.jpg", TopPrediction: "cat"},
	}

	summary := Summarize(results)
	groups := GroupByLabel(results)

	assert.Equal(t, BatchSummary{Total: 4, Classified: 3, Unknown: 1}, summary)
	assert.Equal(t, []string{"cat", UnknownLabel, "dog"}, groups.Labels(), "labels keep first-seen order")
	assert.Equal(t, []string{"a.jpg", "d.jpg"}, groups.Get("cat"))
	assert.Equal(t, []string{"b.jpg"}, groups.Get(UnknownLabel))
	assert.Nil(t, groups.Get("bird"))
	assert.Equal(t, summary.Total, groups.Total())
}

func TestGroupedLabels_JSONKeepsOrder(t *testing.T) {
	var groups GroupedLabels
	groups.Add("zebra", "z.jpg")
	groups.Add("apple", "a.jpg")
	groups.Add("zebra", "z2.jpg")

	data, err := json.Marshal(groups)
	require.NoError(t, err)
	assert.JSONEq(t, `{"zebra":["z.jpg","z2.jpg"],"apple":["a.jpg"]}`, string(data))
	assert.Equal(t, `{"zebra":["z.jpg","z2.jpg"],"apple":["a.jpg"]}`, string(data))

	var decoded GroupedLabels
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, groups, decoded)
}

func TestGroupedLabels_EmptyAndInvalid(t *testing.T) {
	data, err := json.Marshal(GroupedLabels(nil))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	var decoded GroupedLabels
	assert.Error(t, json.Unmarshal([]byte(`["cat"]`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`{"cat":"a.jpg"}`), &decoded))
}

func TestNewFailedStatus_RetryAnnotation(t *testing.T) {
	err := errors.New("image not found")

	first := NewFailedStatus("j1", 0, err)
	retried := NewFailedStatus("j1", 2, err)

	assert.Equal(t, StatusFailed, first.Status)
	assert.Equal(t, "image not found", first.Error)
	assert.Nil(t, first.Result)
	assert.Equal(t, "Retry 2 failed: image not found", retried.Error)
}

func TestStatusMessage_JSON(t *testing.T) {
	result := &BatchResult{
		Success:     true,
		JobID:       "j1",
		JobType:     JobKindStandard,
		ModelUsed:   "MobileNetV2",
		TotalImages: 1,
		GroupedByLabel: GroupedLabels{
			{Label: "cat", Filenames: []string{"a.jpg"}},
		},
		DetailedResults: []ImageResult{{Filename: "a.jpg", Key: "in/a.jpg", TopPrediction: "cat", TopConfidence: 0.9}},
		Summary:         BatchSummary{Total: 1, Classified: 1},
	}

	data, err := json.Marshal(NewCompletedStatus(result))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "j1", decoded["job_id"])
	assert.Equal(t, "completed", decoded["status"])
	assert.NotContains(t, decoded, "error")

	inner := decoded["result"].(map[string]any)
	assert.Equal(t, "image_classification", inner["job_type"])
	assert.Equal(t, map[string]any{"cat": []any{"a.jpg"}}, inner["grouped_by_label"])
	detail := inner["detailed_results"].([]any)[0].(map[string]any)
	assert.NotContains(t, detail, "reason", "reason is omitted for classified images")
}
