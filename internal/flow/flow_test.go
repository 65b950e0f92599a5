package flow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wisecover/quotebot/pkg/session"
)

// fakeFlow collects two fields, "first" and "second", into LastIntent-style
// context scratch space so the driver can be exercised without a product.
type fakeFlow struct {
	applied  map[FieldKey]string
	applyErr error
}

func newFakeFlow() *fakeFlow {
	return &fakeFlow{applied: map[FieldKey]string{}}
}

func (f *fakeFlow) First(_ *session.Session) FieldKey { return "first" }

func (f *fakeFlow) Apply(key FieldKey, answer string, _ *session.Session) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied[key] = answer
	return nil
}

func (f *fakeFlow) Next(_ *session.Session) FieldKey {
	if _, ok := f.applied["first"]; !ok {
		return "first"
	}
	if _, ok := f.applied["second"]; !ok {
		return "second"
	}
	return Done
}

func (f *fakeFlow) Prompt(key FieldKey, _ *session.Session) string {
	return "prompt:" + string(key)
}

func (f *fakeFlow) Finalize(_ *session.Session) (string, error) {
	return "all done", nil
}

func TestRun_OpensWithFirstPrompt(t *testing.T) {
	sess := session.NewSession("s")
	res, err := Run(newFakeFlow(), "i want insurance", sess)
	require.NoError(t, err)
	require.Equal(t, "prompt:first", res.Reply)
	require.False(t, res.Complete)
	require.Equal(t, "first", sess.Context.Awaiting)
}

func TestRun_AppliesAnswerAndAdvances(t *testing.T) {
	f := newFakeFlow()
	sess := session.NewSession("s")
	sess.Context.Awaiting = "first"

	res, err := Run(f, "answer one", sess)
	require.NoError(t, err)
	require.Equal(t, "prompt:second", res.Reply)
	require.Equal(t, "second", sess.Context.Awaiting)
	require.Equal(t, "answer one", f.applied["first"])
}

func TestRun_ValidationErrorKeepsAwaitingField(t *testing.T) {
	f := newFakeFlow()
	f.applyErr = &ValidationError{Field: "first", Message: "try again"}
	sess := session.NewSession("s")
	sess.Context.Awaiting = "first"

	res, err := Run(f, "garbage", sess)
	require.NoError(t, err)
	require.Equal(t, "try again", res.Reply)
	require.Equal(t, "first", sess.Context.Awaiting)
	require.Empty(t, f.applied)
}

func TestRun_ConstraintErrorResetsAwaitingField(t *testing.T) {
	f := newFakeFlow()
	f.applyErr = &ConstraintError{ResetTo: "first", Message: "over the limit"}
	sess := session.NewSession("s")
	sess.Context.Awaiting = "second"

	res, err := Run(f, "too many", sess)
	require.NoError(t, err)
	require.Equal(t, "over the limit", res.Reply)
	require.Equal(t, "first", sess.Context.Awaiting)
}

func TestRun_FinalizesOnDone(t *testing.T) {
	f := newFakeFlow()
	f.applied["first"] = "done earlier"
	sess := session.NewSession("s")
	sess.Context.Awaiting = "second"

	res, err := Run(f, "answer two", sess)
	require.NoError(t, err)
	require.True(t, res.Complete)
	require.Equal(t, "all done", res.Reply)
	require.Empty(t, sess.Context.Awaiting)
}

func TestRun_UnexpectedApplyErrorPropagates(t *testing.T) {
	f := newFakeFlow()
	f.applyErr = errors.New("boom")
	sess := session.NewSession("s")
	sess.Context.Awaiting = "first"

	_, err := Run(f, "whatever", sess)
	require.Error(t, err)
}
