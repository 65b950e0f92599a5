// Package session provides persistence for one conversation's state.
// A session holds the coarse dialogue stage, the capped chat history, the
// partially collected quote payloads, and the typed scratch context the
// per-product state machines work against.
package session

import (
	"encoding/json"
	"time"
)

// Stage is the coarse phase of a conversation.
type Stage string

const (
	// StageUninitiated means no product has been chosen yet.
	StageUninitiated Stage = "uninitiated"
	// StageCollectingTravel means the travel flow is gathering fields.
	StageCollectingTravel Stage = "collecting_travel"
	// StageCollectingFamily means the family flow is gathering fields.
	StageCollectingFamily Stage = "collecting_family"
	// StageReadyToQuote means a finalized payload is waiting for submission.
	StageReadyToQuote Stage = "ready_to_quote"
)

// Product labels the insurance product a conversation is about.
type Product string

const (
	ProductTravel  Product = "TRAVEL"
	ProductFamily  Product = "FAMILY"
	ProductUnknown Product = "UNKNOWN"
)

// historyLimit caps the chat history to the most recent entries.
const historyLimit = 100

// HistoryEntry is one (speaker, text) pair of the conversation transcript.
type HistoryEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Collected holds the in-progress or finalized payload per product.
// Payloads are stored as raw JSON so the session package stays ignorant of
// product shapes; the product flows own (de)serialization.
type Collected struct {
	Travel json.RawMessage `json:"travel,omitempty"`
	Family json.RawMessage `json:"family,omitempty"`
}

// PolicyType is the travel policy duration choice.
type PolicyType string

const (
	PolicySingle PolicyType = "single"
	PolicyAnnual PolicyType = "annual"
)

// GroupType is the travel group composition branch.
type GroupType string

const (
	GroupMyself     GroupType = "myself"
	GroupFamily     GroupType = "family"
	GroupAdults     GroupType = "group_adults"
	GroupHouseholds GroupType = "group_households"
)

// FamilyCounts holds the adult/child counts for the family branch.
// Pointers distinguish "not yet answered" from zero.
type FamilyCounts struct {
	Adults   *int `json:"adults,omitempty"`
	Children *int `json:"children,omitempty"`
}

// HouseholdCounts is one household's composition in the group-of-households branch.
type HouseholdCounts struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

// Households tracks progress through the per-household question loop.
type Households struct {
	Target    int               `json:"target"`
	Collected []HouseholdCounts `json:"collected"`
}

// TravelContext is the typed scratch state for the travel flow. Exactly one
// of the branch sub-structs is populated once the group composition is known.
type TravelContext struct {
	PolicyType PolicyType    `json:"policy_type,omitempty"`
	Group      GroupType     `json:"group,omitempty"`
	Family     *FamilyCounts `json:"family,omitempty"`
	AdultGroup *int          `json:"adult_group,omitempty"`
	Households *Households   `json:"households,omitempty"`
	StartDate  string        `json:"start_date,omitempty"`
	EndDate    string        `json:"end_date,omitempty"`
}

// FamilyContext holds answers for the family flow that are not part of the
// submitted payload shape until finalization.
type FamilyContext struct {
	InsuredParty string `json:"insured_party,omitempty"`
	Email        string `json:"email,omitempty"`
	Mobile       string `json:"mobile,omitempty"`
}

// Context is the per-conversation scratch state. Awaiting names the single
// field the state machine expects an answer for; empty means the machine has
// not started or has finished.
type Context struct {
	Product    Product        `json:"product"`
	LastIntent string         `json:"last_intent,omitempty"`
	ErrorCount int            `json:"error_count"`
	Awaiting   string         `json:"awaiting,omitempty"`
	Travel     *TravelContext `json:"travel,omitempty"`
	Family     *FamilyContext `json:"family,omitempty"`
}

// Session is one persisted conversation, keyed by an opaque identifier.
type Session struct {
	ID         string         `json:"session_id"`
	Stage      Stage          `json:"stage"`
	History    []HistoryEntry `json:"chat_history"`
	Collected  Collected      `json:"collected_info"`
	Context    Context        `json:"conversation_context"`
	LastActive time.Time      `json:"last_active"`
}

// NewSession returns the default document for a fresh conversation.
func NewSession(id string) *Session {
	return &Session{
		ID:         id,
		Stage:      StageUninitiated,
		History:    []HistoryEntry{},
		Context:    Context{Product: ProductUnknown},
		LastActive: time.Now().UTC(),
	}
}

// AppendHistory records a (user, assistant) exchange, keeping only the most
// recent entries.
func (s *Session) AppendHistory(userMsg, botMsg string) {
	s.History = append(s.History,
		HistoryEntry{Role: "user", Text: userMsg},
		HistoryEntry{Role: "assistant", Text: botMsg},
	)
	if len(s.History) > historyLimit {
		s.History = s.History[len(s.History)-historyLimit:]
	}
}
