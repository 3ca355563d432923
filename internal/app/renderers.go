package app

import (
	"context"
	"errors"

	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
)

// MultiRenderer fans every call out to several renderers.
// Errors are joined; one failing sink does not stop the others.
type MultiRenderer []ports.Renderer

// Init initializes every sink.
func (m MultiRenderer) Init(ctx context.Context, scene string) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Init(ctx, scene))
	}
	return errors.Join(errs...)
}

// Log forwards rec to every sink.
func (m MultiRenderer) Log(path string, rec domain.Record) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Log(path, rec))
	}
	return errors.Join(errs...)
}

// LogStatic forwards rec to every sink.
func (m MultiRenderer) LogStatic(path string, rec domain.Record) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.LogStatic(path, rec))
	}
	return errors.Join(errs...)
}

// Close closes sinks in reverse order.
func (m MultiRenderer) Close() error {
	var errs []error
	for i := len(m) - 1; i >= 0; i-- {
		errs = append(errs, m[i].Close())
	}
	return errors.Join(errs...)
}
