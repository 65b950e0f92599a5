// Package family implements the conversation flow that fills a Family
// Protect quote payload.
package family

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wisecover/quotebot/internal/flow"
	"github.com/wisecover/quotebot/pkg/session"
)

// Field keys for the family question tree.
const (
	KeyPremiumType   flow.FieldKey = "premium_type"
	KeyInsuredParty  flow.FieldKey = "insured_party"
	KeyInceptionDate flow.FieldKey = "inception_date"
	KeyEmail         flow.FieldKey = "email"
	KeyMobile        flow.FieldKey = "mobile"
	KeyPromoCode     flow.FieldKey = "promo_code"
)

var prompts = map[flow.FieldKey]string{
	KeyPremiumType:   "Are you looking for a **Monthly** or an **Annual** family insurance plan?",
	KeyInsuredParty:  "Who is this plan for? (**Myself**, **Myself with Child(ren)**, or **Family**)",
	KeyInceptionDate: "What date would you like the plan to start? (YYYY-MM-DD)",
	KeyEmail:         "What is your email address?",
	KeyMobile:        "And your 8-digit Singapore mobile number?",
	KeyPromoCode:     "Finally, do you have a promocode? (If not, just say 'no')",
}

// Flow is the family product's question tree.
type Flow struct{}

func New() *Flow { return &Flow{} }

// First seeds the family context and payload template and opens with the
// premium frequency question.
func (f *Flow) First(s *session.Session) flow.FieldKey {
	s.Context.Family = &session.FamilyContext{}
	_ = savePayload(s, template())
	return KeyPremiumType
}

func (f *Flow) Prompt(key flow.FieldKey, _ *session.Session) string {
	return prompts[key]
}

// Apply validates the answer for the awaited field and writes it into the
// session.
func (f *Flow) Apply(key flow.FieldKey, answer string, s *session.Session) error {
	fc := s.Context.Family
	if fc == nil {
		fc = &session.FamilyContext{}
		s.Context.Family = fc
	}

	ans := strings.TrimSpace(answer)
	lower := strings.ToLower(ans)

	switch key {
	case KeyPremiumType:
		p, err := loadPayload(s)
		if err != nil {
			return err
		}
		premium := "monthly"
		if strings.Contains(lower, "annual") {
			premium = "annual"
		}
		p.PremiumType = &premium
		return savePayload(s, p)

	case KeyInsuredParty:
		p, err := loadPayload(s)
		if err != nil {
			return err
		}
		fc.InsuredParty = lower
		switch {
		case strings.Contains(lower, "myself with child"):
			p.WithChildren = true
			p.WithSpouse = false
		case strings.Contains(lower, "family"):
			p.WithChildren = true
			p.WithSpouse = true
		default: // Myself
			p.WithChildren = false
			p.WithSpouse = false
		}
		return savePayload(s, p)

	case KeyInceptionDate:
		date := strings.ReplaceAll(lower, "/", "-")
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return &flow.ValidationError{
				Field:   key,
				Message: "That doesn't look like a valid date format. Please use YYYY-MM-DD.",
			}
		}
		p, err := loadPayload(s)
		if err != nil {
			return err
		}
		p.PolicyInceptionDate = &date
		return savePayload(s, p)

	case KeyEmail:
		fc.Email = ans
		return nil

	case KeyMobile:
		fc.Mobile = ans
		return nil

	case KeyPromoCode:
		p, err := loadPayload(s)
		if err != nil {
			return err
		}
		code := ans
		if lower == "no" {
			// Explicitly declined, distinct from "not yet asked".
			code = ""
		}
		p.PromoCode = &code
		return savePayload(s, p)
	}

	return fmt.Errorf("unknown family field %q", key)
}

// Next returns the first unanswered field in the fixed order, or flow.Done.
func (f *Flow) Next(s *session.Session) flow.FieldKey {
	p, err := loadPayload(s)
	if err != nil {
		return KeyPremiumType
	}
	fc := s.Context.Family
	if fc == nil {
		fc = &session.FamilyContext{}
	}

	if p.PremiumType == nil {
		return KeyPremiumType
	}
	if fc.InsuredParty == "" {
		return KeyInsuredParty
	}
	if p.PolicyInceptionDate == nil {
		return KeyInceptionDate
	}
	if fc.Email == "" {
		return KeyEmail
	}
	if fc.Mobile == "" {
		return KeyMobile
	}
	if p.PromoCode == nil {
		return KeyPromoCode
	}
	return flow.Done
}

// Finalize copies the contact details into the payload's leads block and
// drops the transient context, leaving exactly the submission shape.
func (f *Flow) Finalize(s *session.Session) (string, error) {
	p, err := loadPayload(s)
	if err != nil {
		return "", err
	}
	fc := s.Context.Family
	if fc != nil {
		p.Leads = &Leads{Email: fc.Email, ContactMobile: fc.Mobile}
	}
	s.Context.Family = nil

	if err := savePayload(s, p); err != nil {
		return "", err
	}
	return "Thank you. Let me get the price for you...", nil
}

func loadPayload(s *session.Session) (*Payload, error) {
	if len(s.Collected.Family) == 0 {
		return nil, fmt.Errorf("no family payload in session")
	}
	var p Payload
	if err := json.Unmarshal(s.Collected.Family, &p); err != nil {
		return nil, fmt.Errorf("unmarshal family payload: %w", err)
	}
	return &p, nil
}

func savePayload(s *session.Session, p *Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal family payload: %w", err)
	}
	s.Collected.Family = data
	return nil
}
