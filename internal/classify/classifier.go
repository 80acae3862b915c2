package classify

import (
	"context"
	"image"
	"sort"

	"github.com/phrazzld/classifier-worker/internal/domain"
)

// ImageSource resolves an image reference to decoded pixel data.
type ImageSource interface {
	// Resolve fetches and decodes the object at key in bucket.
	Resolve(ctx context.Context, bucket, key string) (image.Image, error)
}

// Params carries the per-job prediction parameters.
type Params struct {
	// TopK is the maximum number of predictions to return.
	TopK int

	// Labels holds the candidate labels for open-vocabulary classifiers.
	// Closed-vocabulary classifiers ignore it.
	Labels []string
}

// Classifier is one model variant. Implementations are loaded once and shared
// read-only by every in-flight job, so Predict must be safe for concurrent use.
type Classifier interface {
	// Name is the human-readable model name recorded in results.
	Name() string

	// Predict returns at most params.TopK predictions ranked by descending score.
	Predict(ctx context.Context, img image.Image, params Params) ([]domain.Prediction, error)
}

// RankLabels pairs candidate labels with their scores and returns the topK
// highest, sorted by descending score. Ties keep the original label order.
func RankLabels(labels []string, scores []float64, topK int) []domain.Prediction {
	n := len(labels)
	if len(scores) < n {
		n = len(scores)
	}

	ranked := make([]domain.Prediction, n)
	for i := 0; i < n; i++ {
		ranked[i] = domain.Prediction{Label: labels[i], Score: scores[i]}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}
