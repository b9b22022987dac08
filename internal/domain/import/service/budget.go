package service

import (
	"fmt"
	"strings"
)

const (
	DefaultErrorThreshold  = 0.05
	DefaultMaxErrorSamples = 10
)

// ErrorBudget counts parsed and rejected rows of one import.
type ErrorBudget struct {
	Threshold  float64
	MaxSamples int

	Rows    int
	Errors  int
	Samples []string
}

func NewErrorBudget(threshold float64, maxSamples int) ErrorBudget {
	return ErrorBudget{Threshold: threshold, MaxSamples: maxSamples}
}

// Success counts one parsed row.
func (b *ErrorBudget) Success() {
	b.Rows++
}

// Record counts one rejected row, keeping its message while samples remain.
func (b *ErrorBudget) Record(err error) {
	b.Errors++
	if len(b.Samples) < b.MaxSamples {
		b.Samples = append(b.Samples, err.Error())
	}
}

// Rate is the share of rejected rows. An empty file has rate 1.
func (b ErrorBudget) Rate() float64 {
	total := b.Rows + b.Errors
	if total == 0 {
		return 1
	}
	return float64(b.Errors) / float64(total)
}

// BudgetDecision is the outcome of an import once every row has been read.
type BudgetDecision struct {
	Accept  bool
	Rate    float64
	Message string
}

// Decide accepts the import when the error rate does not exceed the threshold.
func (b ErrorBudget) Decide() BudgetDecision {
	rate := b.Rate()
	if rate > b.Threshold {
		return BudgetDecision{
			Rate: rate,
			Message: fmt.Sprintf("Parsing aborted. Error rate %.1f%% (rows=%d, errors=%d). Samples: %s",
				rate*100, b.Rows, b.Errors, strings.Join(b.Samples, " | ")),
		}
	}

	d := BudgetDecision{Accept: true, Rate: rate}
	if b.Errors > 0 {
		d.Message = fmt.Sprintf("Completed with %d row errors.", b.Errors)
	}
	return d
}
