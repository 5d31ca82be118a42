package engine

import (
	"errors"
	"fmt"

	"positionScope/internal/dexscreener"
	"positionScope/internal/subgraph"
)

// Error taxonomy returned by the engine entry points. Test with errors.Is.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrUpstreamMalformed    = errors.New("upstream malformed")
	ErrNoPoolsFound         = errors.New("no pools found")
	ErrPositionLookupFailed = errors.New("position lookup failed")
)

// Error kinds as reported by Kind.
const (
	KindInvalidInput         = "InvalidInput"
	KindUpstreamUnavailable  = "UpstreamUnavailable"
	KindUpstreamMalformed    = "UpstreamMalformed"
	KindNoPoolsFound         = "NoPoolsFound"
	KindPositionLookupFailed = "PositionLookupFailed"
	KindInternal             = "Internal"
)

// Kind maps err onto a stable kind name. A nil error has no kind.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrUpstreamUnavailable):
		return KindUpstreamUnavailable
	case errors.Is(err, ErrUpstreamMalformed):
		return KindUpstreamMalformed
	case errors.Is(err, ErrNoPoolsFound):
		return KindNoPoolsFound
	case errors.Is(err, ErrPositionLookupFailed):
		return KindPositionLookupFailed
	default:
		return KindInternal
	}
}

// classify re-labels a client error with the engine taxonomy, keeping the
// underlying error in the chain.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dexscreener.ErrInvalidToken):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, dexscreener.ErrMalformed), errors.Is(err, subgraph.ErrMalformed):
		return fmt.Errorf("%w: %w", ErrUpstreamMalformed, err)
	case errors.Is(err, dexscreener.ErrUnavailable), errors.Is(err, subgraph.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
}

func lookupFailed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPositionLookupFailed, fmt.Sprintf(format, args...))
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
