package classify

import (
	"fmt"
	"strconv"

	"github.com/phrazzld/classifier-worker/internal/domain"
)

// ResolveTopLabel applies the confidence threshold to the top prediction.
// Below the threshold the label becomes domain.UnknownLabel and the returned
// reason records the original label, its score and the threshold. At or
// above it, the original label is returned with an empty reason.
func ResolveTopLabel(top domain.Prediction, threshold float64) (label, reason string) {
	if top.Score >= threshold {
		return top.Label, ""
	}

	reason = fmt.Sprintf("confidence below threshold (%.2f < %s). Original prediction: %s",
		top.Score, strconv.FormatFloat(threshold, 'f', -1, 64), top.Label)
	return domain.UnknownLabel, reason
}
