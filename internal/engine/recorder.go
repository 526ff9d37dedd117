package engine

import (
	"context"
	"errors"

	"github.com/Alias1177/SmartMoney/internal/model"
)

// Recorder receives finished results, e.g. to persist or publish them.
type Recorder interface {
	Record(ctx context.Context, r *model.AnalysisResult) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, r *model.AnalysisResult) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, r *model.AnalysisResult) error {
	return f(ctx, r)
}

// MultiRecorder fans a result out to every recorder and joins their errors. One failing
// recorder does not stop the others.
type MultiRecorder []Recorder

// Record implements Recorder.
func (m MultiRecorder) Record(ctx context.Context, r *model.AnalysisResult) error {
	var errs []error
	for _, rec := range m {
		if err := rec.Record(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
