package flow

// ValidationError rejects one answer. The in-progress record is left
// untouched and the same question is re-asked; Message is shown verbatim
// to the user.
type ValidationError struct {
	Field   FieldKey
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConstraintError reports a branch-constraint violation discovered only
// after several fields were answered (e.g. an annual family plan exceeding
// its traveler limits). Apply is expected to have already cleared the
// offending answers; ResetTo names the field the conversation resumes from.
type ConstraintError struct {
	ResetTo FieldKey
	Message string
}

func (e *ConstraintError) Error() string { return e.Message }
