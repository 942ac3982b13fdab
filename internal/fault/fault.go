// Package fault defines the error taxonomy shared by the provisioning core.
//
// Every error leaving internal/provision, internal/cloud, internal/ingress or
// internal/store carries exactly one Kind. Callers branch on Kind; raw
// provider error text is kept in the cause chain for operators but is never
// meant for end users.
package fault

import (
	"github.com/cockroachdb/errors"
)

// Kind classifies an error for callers.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors without a marker.
	KindUnknown Kind = iota

	// KindNotFound means a remote resource is absent. Inside the engine it
	// drives the create branch and is not surfaced for find-miss flows.
	KindNotFound

	// KindConflict means a duplicate remote resource (duplicate security
	// rule, colliding hostname). Recoverable; surfaced as a benign message.
	KindConflict

	// KindValidation means malformed caller input, e.g. an invalid port.
	KindValidation

	// KindPreconditionFailed means a required prior resource is missing,
	// e.g. server creation without a keypair.
	KindPreconditionFailed

	// KindRemoteUnavailable means a transient provider or network failure.
	// Not retried by this core; retrying the whole operation is safe only
	// for paths that create nothing.
	KindRemoteUnavailable

	// KindPartialProvisioning means a provisioning step failed after prior
	// steps succeeded. Earlier resources are left in place for manual
	// inspection; surfaced distinctly from KindRemoteUnavailable.
	KindPartialProvisioning
)

// String returns the metrics/log label for the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindRemoteUnavailable:
		return "remote_unavailable"
	case KindPartialProvisioning:
		return "partial_provisioning"
	case KindUnknown:
		return "unknown"
	}

	return "unknown"
}

type kindMarker struct {
	kind Kind
}

func (m *kindMarker) Error() string { return m.kind.String() }

// WithKind attaches a kind to err, preserving the cause chain.
func WithKind(err error, kind Kind) error {
	if err == nil {
		return nil
	}

	return errors.Mark(err, &kindMarker{kind: kind})
}

// New creates a new error with the given kind and message.
func New(kind Kind, msg string) error {
	return WithKind(errors.New(msg), kind)
}

// Newf creates a new error with the given kind and formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return WithKind(errors.Newf(format, args...), kind)
}

// Wrap wraps err with a message, attaching the given kind.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}

	return WithKind(errors.Wrap(err, msg), kind)
}

// Wrapf wraps err with a formatted message, attaching the given kind.
func Wrapf(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return WithKind(errors.Wrapf(err, format, args...), kind)
}

// KindOf returns the kind attached to err, or KindUnknown.
// When kinds are stacked (a PartialProvisioning wrapping a RemoteUnavailable
// step failure), the outermost kind wins.
func KindOf(err error) Kind {
	for _, kind := range []Kind{
		KindPartialProvisioning,
		KindPreconditionFailed,
		KindConflict,
		KindValidation,
		KindNotFound,
		KindRemoteUnavailable,
	} {
		if errors.Is(err, &kindMarker{kind: kind}) {
			return kind
		}
	}

	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return errors.Is(err, &kindMarker{kind: kind})
}
