package wrapper

import (
	"time"

	"github.com/aigoflow/scoring-service/internal/models"
)

// Measure runs call once and reports how long it took. Errors and panics
// from call are passed through untouched.
func Measure(call func() (models.Outcome, error)) (models.Outcome, time.Duration, error) {
	start := time.Now()
	out, err := call()
	return out, time.Since(start), err
}
