// Package orchestrator routes inbound chat messages to the right product
// flow based on the persisted conversation stage, and owns the global
// commands (reset, intent classification, quote submission).
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/wisecover/quotebot/internal/family"
	"github.com/wisecover/quotebot/internal/flow"
	"github.com/wisecover/quotebot/internal/intent"
	"github.com/wisecover/quotebot/internal/quote"
	"github.com/wisecover/quotebot/internal/travel"
	"github.com/wisecover/quotebot/pkg/observability"
	"github.com/wisecover/quotebot/pkg/session"
)

// Canned replies.
const (
	greetingReply = "Hello! I can help you with Travel or Family insurance. Which one are you interested in?"
	pickProduct   = "I can help with Travel or Family insurance. Which product are you interested in?"
	fallbackReply = "I'm not sure how to help with that. Please start by telling me if you need Travel or Family insurance."
	apologyReply  = "I'm sorry, a critical error occurred. Please start over by saying 'hi'."
	lostProduct   = "I'm sorry, I've lost track of which product we were discussing."
	lostDetails   = "I seem to have lost your details. Let's start over."
)

// Reply is one turn's outcome: either prompt/acknowledgement text or, after
// a quote submission, the provider's raw JSON response.
type Reply struct {
	Text string
	Raw  json.RawMessage
}

// ResponseJSON renders the reply as the value of the API's response field.
func (r Reply) ResponseJSON() json.RawMessage {
	if r.Raw != nil {
		return r.Raw
	}
	out, _ := json.Marshal(r.Text)
	return out
}

func (r Reply) historyText() string {
	if r.Raw != nil {
		return string(r.Raw)
	}
	return r.Text
}

// Orchestrator is the top-level dispatcher.
type Orchestrator struct {
	store      session.Store
	classifier intent.Classifier
	quotes     quote.Submitter
	flows      map[session.Product]flow.Flow
	stages     map[session.Product]session.Stage
}

// New wires the orchestrator with its collaborators.
func New(store session.Store, classifier intent.Classifier, quotes quote.Submitter) *Orchestrator {
	return &Orchestrator{
		store:      store,
		classifier: classifier,
		quotes:     quotes,
		flows: map[session.Product]flow.Flow{
			session.ProductTravel: travel.New(),
			session.ProductFamily: family.New(),
		},
		stages: map[session.Product]session.Stage{
			session.ProductTravel: session.StageCollectingTravel,
			session.ProductFamily: session.StageCollectingFamily,
		},
	}
}

// Handle processes one inbound message for a session. It never returns an
// error: any failure below this point is logged and converted into a generic
// apology, leaving the session in whatever state it was in before.
func (o *Orchestrator) Handle(ctx context.Context, sessionID, message string) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("orchestrator: panic handling session %s: %v", sessionID, r)
			reply = Reply{Text: apologyReply}
		}
	}()

	reply, err := o.handle(ctx, sessionID, message)
	if err != nil {
		log.Printf("orchestrator: error handling session %s: %v", sessionID, err)
		return Reply{Text: apologyReply}
	}
	return reply
}

func (o *Orchestrator) handle(ctx context.Context, sessionID, message string) (Reply, error) {
	// Global reset preempts everything, including an in-progress collection.
	trimmed := strings.ToLower(strings.TrimSpace(message))
	if trimmed == "hi" || trimmed == "hello" {
		if _, err := o.store.Reset(ctx, sessionID); err != nil {
			return Reply{}, err
		}
		return o.commit(ctx, sessionID, message, Reply{Text: greetingReply}, nil)
	}

	sess, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	observability.RecordChatMessage(string(sess.Stage))

	switch sess.Stage {
	case session.StageUninitiated:
		return o.handleUninitiated(ctx, sess, message)

	case session.StageCollectingTravel:
		return o.handleCollecting(ctx, sess.ID, session.ProductTravel, message)

	case session.StageCollectingFamily:
		return o.handleCollecting(ctx, sess.ID, session.ProductFamily, message)

	case session.StageReadyToQuote:
		return o.handleQuote(ctx, sess, message)

	default:
		return o.commit(ctx, sess.ID, message, Reply{Text: fallbackReply}, nil)
	}
}

// handleUninitiated classifies the first real message and hands it to the
// chosen product flow, starting fresh.
func (o *Orchestrator) handleUninitiated(ctx context.Context, sess *session.Session, message string) (Reply, error) {
	result := o.classifier.Classify(ctx, message, sess.History)
	log.Printf("orchestrator: session %s classified as product=%s intent=%s confidence=%.2f",
		sess.ID, result.Product, result.Intent, result.Confidence)

	if result.Intent == "greeting" {
		return o.commit(ctx, sess.ID, message, Reply{Text: greetingReply}, nil)
	}

	productFlow, ok := o.flows[result.Product]
	if !ok {
		return o.commit(ctx, sess.ID, message, Reply{Text: pickProduct}, nil)
	}

	var reply Reply
	mutate := func(s *session.Session) error {
		s.Stage = o.stages[result.Product]
		s.Context.Product = result.Product
		s.Context.LastIntent = result.Intent

		res, err := flow.Run(productFlow, message, s)
		if err != nil {
			return err
		}
		reply = Reply{Text: res.Reply}
		if res.Complete {
			s.Stage = session.StageReadyToQuote
		}
		s.AppendHistory(message, reply.historyText())
		return nil
	}
	if _, err := o.store.Update(ctx, sess.ID, mutate); err != nil {
		return Reply{}, o.noteConflict(err)
	}
	return reply, nil
}

// handleCollecting advances a product flow by one answer. The whole step runs
// inside the store's read-modify-write transaction: the flow logic is pure,
// so a conflict retry simply replays it against the fresh document.
func (o *Orchestrator) handleCollecting(ctx context.Context, sessionID string, product session.Product, message string) (Reply, error) {
	productFlow := o.flows[product]

	var reply Reply
	mutate := func(s *session.Session) error {
		res, err := flow.Run(productFlow, message, s)
		if err != nil {
			return err
		}
		reply = Reply{Text: res.Reply}
		if res.Complete {
			s.Stage = session.StageReadyToQuote
		}
		s.AppendHistory(message, reply.historyText())
		return nil
	}
	if _, err := o.store.Update(ctx, sessionID, mutate); err != nil {
		return Reply{}, o.noteConflict(err)
	}
	return reply, nil
}

// handleQuote submits the finalized payload and relays the raw provider
// response. Win or lose, the conversation returns to uninitiated; no retry
// at this layer.
func (o *Orchestrator) handleQuote(ctx context.Context, sess *session.Session, message string) (Reply, error) {
	product := sess.Context.Product

	var payload json.RawMessage
	switch product {
	case session.ProductTravel:
		payload = sess.Collected.Travel
	case session.ProductFamily:
		payload = sess.Collected.Family
	default:
		return o.commit(ctx, sess.ID, message, Reply{Text: lostProduct}, nil)
	}
	if len(payload) == 0 {
		reset := func(s *session.Session) error {
			s.Stage = session.StageUninitiated
			return nil
		}
		return o.commit(ctx, sess.ID, message, Reply{Text: lostDetails}, reset)
	}

	raw := o.quotes.Submit(ctx, product, payload)
	observability.RecordQuoteSubmission(string(product))

	back := func(s *session.Session) error {
		s.Stage = session.StageUninitiated
		return nil
	}
	return o.commit(ctx, sess.ID, message, Reply{Raw: raw}, back)
}

// commit appends the exchange to the history (plus any extra mutation) and
// persists the session.
func (o *Orchestrator) commit(ctx context.Context, sessionID, message string, reply Reply, extra func(*session.Session) error) (Reply, error) {
	mutate := func(s *session.Session) error {
		if extra != nil {
			if err := extra(s); err != nil {
				return err
			}
		}
		s.AppendHistory(message, reply.historyText())
		return nil
	}
	if _, err := o.store.Update(ctx, sessionID, mutate); err != nil {
		return Reply{}, o.noteConflict(err)
	}
	return reply, nil
}

func (o *Orchestrator) noteConflict(err error) error {
	if errors.Is(err, session.ErrConflict) {
		observability.RecordStoreConflict()
	}
	return err
}
