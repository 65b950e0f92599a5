// Package flow holds the shared conversation state machine that the product
// flows plug into: a typed field key, a Flow interface describing one
// product's question tree, and the driver that turns (awaited field, answer)
// pairs into the next prompt or a finalized payload.
package flow

import (
	"errors"
	"fmt"

	"github.com/wisecover/quotebot/pkg/session"
)

// FieldKey names one question in a product's schema. The per-product key
// sets are closed enumerations; the processors reject keys outside them.
type FieldKey string

// Done is the resolver's completion signal.
const Done FieldKey = ""

// Flow is one product's question tree. Implementations are stateless; all
// conversation state lives in the session document.
type Flow interface {
	// First returns the opening field and seeds whatever template state the
	// product needs in the session.
	First(s *session.Session) FieldKey

	// Apply validates the raw answer for the awaited field and writes it
	// into the session. A *ValidationError or *ConstraintError keeps the
	// machine on course (re-prompt); any other error is unexpected.
	Apply(key FieldKey, answer string, s *session.Session) error

	// Next returns the first unanswered applicable field, or Done.
	// It is a pure function of the session state.
	Next(s *session.Session) FieldKey

	// Prompt renders the question text for a field.
	Prompt(key FieldKey, s *session.Session) string

	// Finalize derives computed fields, strips transient state, stores the
	// submission-ready payload in the session, and returns the
	// acknowledgement text shown to the user.
	Finalize(s *session.Session) (string, error)
}

// Result is one driver step's outcome.
type Result struct {
	// Reply is the text to show the user: the next prompt, a validation
	// message, or the finalization acknowledgement.
	Reply string
	// Complete reports that the payload was finalized this step.
	Complete bool
}

// Run advances a product flow by one user message. The session is mutated in
// place; persisting it is the caller's concern.
func Run(f Flow, message string, s *session.Session) (Result, error) {
	if s.Context.Awaiting == "" {
		key := f.First(s)
		s.Context.Awaiting = string(key)
		return Result{Reply: f.Prompt(key, s)}, nil
	}

	awaited := FieldKey(s.Context.Awaiting)
	if err := f.Apply(awaited, message, s); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			// Same question again; the record is untouched.
			return Result{Reply: verr.Message}, nil
		}
		var cerr *ConstraintError
		if errors.As(err, &cerr) {
			s.Context.Awaiting = string(cerr.ResetTo)
			return Result{Reply: cerr.Message}, nil
		}
		return Result{}, fmt.Errorf("apply %s: %w", awaited, err)
	}

	next := f.Next(s)
	if next == Done {
		reply, err := f.Finalize(s)
		if err != nil {
			return Result{}, fmt.Errorf("finalize: %w", err)
		}
		s.Context.Awaiting = ""
		return Result{Reply: reply, Complete: true}, nil
	}

	s.Context.Awaiting = string(next)
	return Result{Reply: f.Prompt(next, s)}, nil
}
