package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wisecover/quotebot/internal/intent"
	"github.com/wisecover/quotebot/pkg/session"
)

// memStore is an in-memory session.Store for orchestrator tests.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	resets   int
	failWith error
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]*session.Session{}}
}

func (m *memStore) get(id string) *session.Session {
	s, ok := m.sessions[id]
	if !ok {
		s = session.NewSession(id)
		m.sessions[id] = s
	}
	return s
}

func (m *memStore) Load(_ context.Context, id string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.get(id), nil
}

func (m *memStore) Update(_ context.Context, id string, mutate func(*session.Session) error) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	s := m.get(id)
	if err := mutate(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *memStore) Reset(_ context.Context, id string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.resets++
	s := session.NewSession(id)
	m.sessions[id] = s
	return s, nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

type fixedClassifier struct {
	result intent.Result
}

func (c fixedClassifier) Classify(context.Context, string, []session.HistoryEntry) intent.Result {
	return c.result
}

type recordingSubmitter struct {
	product  session.Product
	payload  json.RawMessage
	response json.RawMessage
}

func (r *recordingSubmitter) Submit(_ context.Context, product session.Product, payload json.RawMessage) json.RawMessage {
	r.product = product
	r.payload = payload
	return r.response
}

func TestGreetingResetsMidCollection(t *testing.T) {
	store := newMemStore()
	sess := session.NewSession("s1")
	sess.Stage = session.StageCollectingTravel
	sess.Context.Awaiting = "destination"
	store.sessions["s1"] = sess

	o := New(store, fixedClassifier{}, &recordingSubmitter{})
	reply := o.Handle(context.Background(), "s1", "  Hi ")

	require.Equal(t, greetingReply, reply.Text)
	require.Equal(t, 1, store.resets)
	got := store.sessions["s1"]
	require.Equal(t, session.StageUninitiated, got.Stage)
	require.Empty(t, got.Context.Awaiting)
	require.Len(t, got.History, 2)
	require.Equal(t, "assistant", got.History[1].Role)
	require.Equal(t, greetingReply, got.History[1].Text)
}

func TestUninitiatedRoutesToTravelFlow(t *testing.T) {
	store := newMemStore()
	classifier := fixedClassifier{result: intent.Result{
		Product: session.ProductTravel, Intent: "buy_insurance", Confidence: 0.9,
	}}

	o := New(store, classifier, &recordingSubmitter{})
	reply := o.Handle(context.Background(), "s1", "I need travel insurance")

	require.Contains(t, reply.Text, "Single Trip")
	got := store.sessions["s1"]
	require.Equal(t, session.StageCollectingTravel, got.Stage)
	require.Equal(t, session.ProductTravel, got.Context.Product)
	require.Equal(t, "buy_insurance", got.Context.LastIntent)
	require.NotEmpty(t, got.Context.Awaiting)
}

func TestUninitiatedGreetingIntent(t *testing.T) {
	store := newMemStore()
	classifier := fixedClassifier{result: intent.Result{
		Product: session.ProductUnknown, Intent: "greeting",
	}}

	o := New(store, classifier, &recordingSubmitter{})
	reply := o.Handle(context.Background(), "s1", "good morning")

	require.Equal(t, greetingReply, reply.Text)
	require.Equal(t, session.StageUninitiated, store.sessions["s1"].Stage)
}

func TestUninitiatedUnknownProduct(t *testing.T) {
	store := newMemStore()
	classifier := fixedClassifier{result: intent.Result{
		Product: session.ProductUnknown, Intent: "unwanted",
	}}

	o := New(store, classifier, &recordingSubmitter{})
	reply := o.Handle(context.Background(), "s1", "what's the weather like")

	require.Equal(t, pickProduct, reply.Text)
	require.Equal(t, session.StageUninitiated, store.sessions["s1"].Stage)
}

func TestFamilyCollectionThroughSubmission(t *testing.T) {
	store := newMemStore()
	classifier := fixedClassifier{result: intent.Result{
		Product: session.ProductFamily, Intent: "buy_insurance", Confidence: 0.95,
	}}
	submitter := &recordingSubmitter{
		response: json.RawMessage(`{"success":"ok","data":{"premiums":[]}}`),
	}
	o := New(store, classifier, submitter)
	ctx := context.Background()

	o.Handle(ctx, "s1", "family insurance please")
	require.Equal(t, session.StageCollectingFamily, store.sessions["s1"].Stage)

	for _, answer := range []string{"monthly", "myself", "2025-09-01", "jane@example.com", "91234567"} {
		o.Handle(ctx, "s1", answer)
	}
	reply := o.Handle(ctx, "s1", "no")
	require.Contains(t, reply.Text, "price")
	require.Equal(t, session.StageReadyToQuote, store.sessions["s1"].Stage)

	// The next message triggers the submission and relays the raw response.
	reply = o.Handle(ctx, "s1", "ok")
	require.JSONEq(t, string(submitter.response), string(reply.Raw))
	require.Equal(t, session.ProductFamily, submitter.product)
	require.NotEmpty(t, submitter.payload)
	require.Equal(t, session.StageUninitiated, store.sessions["s1"].Stage)

	// The raw response is what went into the transcript.
	hist := store.sessions["s1"].History
	require.Equal(t, string(submitter.response), hist[len(hist)-1].Text)
}

func TestQuoteWithoutPayloadStartsOver(t *testing.T) {
	store := newMemStore()
	sess := session.NewSession("s1")
	sess.Stage = session.StageReadyToQuote
	sess.Context.Product = session.ProductTravel
	store.sessions["s1"] = sess

	o := New(store, fixedClassifier{}, &recordingSubmitter{})
	reply := o.Handle(context.Background(), "s1", "ok")

	require.Equal(t, lostDetails, reply.Text)
	require.Equal(t, session.StageUninitiated, store.sessions["s1"].Stage)
}

func TestStoreFailureYieldsApology(t *testing.T) {
	store := newMemStore()
	store.failWith = errors.New("redis unavailable")

	o := New(store, fixedClassifier{}, &recordingSubmitter{})
	reply := o.Handle(context.Background(), "s1", "travel insurance")

	require.Equal(t, apologyReply, reply.Text)
}

func TestResponseJSON(t *testing.T) {
	text := Reply{Text: `hello "world"`}
	require.Equal(t, `"hello \"world\""`, string(text.ResponseJSON()))

	raw := Reply{Raw: json.RawMessage(`{"a":1}`)}
	require.Equal(t, `{"a":1}`, string(raw.ResponseJSON()))
}
