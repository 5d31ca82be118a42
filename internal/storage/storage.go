package storage

import (
	"context"
	"errors"

	"positionScope/internal/model"
)

// Sink persists analyze reports.
type Sink interface {
	PutReport(ctx context.Context, report model.Report) error
}

// MultiSink writes a report to every sink, continuing past failures.
type MultiSink []Sink

// PutReport implements Sink. The returned error joins every sink failure.
func (m MultiSink) PutReport(ctx context.Context, report model.Report) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutReport(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
