package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Axelpuff/schedassist/internal/proposal"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrNoChanges is returned when an apply batch carries nothing to do.
	ErrNoChanges = errors.New("application: no changes to apply")
	// ErrModelUnavailable is returned when the generative-model collaborator
	// cannot be reached or answers with nothing usable.
	ErrModelUnavailable = errors.New("application: model collaborator unavailable")
)

// ValidationError captures request-shape violations detected before any
// collaborator is contacted.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ProposalInvalidError wraps the repair pipeline's structured findings so the
// caller can surface every violated field path.
type ProposalInvalidError struct {
	Issues []proposal.Issue
}

// Error implements the error interface.
func (e *ProposalInvalidError) Error() string {
	if e == nil {
		return "proposal invalid"
	}
	return fmt.Sprintf("proposal invalid: %d issue(s)", len(e.Issues))
}

// ErrorKind maps errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoChanges):
		return "no_changes"
	case errors.Is(err, ErrModelUnavailable):
		return "model_unavailable"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	var pErr *ProposalInvalidError
	if errors.As(err, &pErr) {
		return "proposal_invalid"
	}

	return "unexpected"
}
