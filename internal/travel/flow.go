// Package travel implements the conversation flow that fills a travel
// insurance quote payload: Single Trip (TVP) and Annual Multi-Trip (TPX).
package travel

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wisecover/quotebot/internal/flow"
	"github.com/wisecover/quotebot/pkg/session"
)

// Field keys for the travel question tree.
const (
	KeyPolicyType       flow.FieldKey = "policy_type"
	KeyGroupTypeSingle  flow.FieldKey = "group_type_single"
	KeyGroupTypeAnnual  flow.FieldKey = "group_type_annual"
	KeyZone             flow.FieldKey = "zone"
	KeyNumAdults        flow.FieldKey = "num_adults"
	KeyNumChildren      flow.FieldKey = "num_children"
	KeyNumAdultsGroup   flow.FieldKey = "num_adults_group"
	KeyNumHouseholds    flow.FieldKey = "num_households"
	KeyHouseholdInfo    flow.FieldKey = "household_info"
	KeyDestination      flow.FieldKey = "destination"
	KeyStartDate        flow.FieldKey = "start_date"
	KeyEndDate          flow.FieldKey = "end_date"
	KeyAddonPreEx       flow.FieldKey = "addon_pre_ex"
	KeyAddonFFM         flow.FieldKey = "addon_ffm"
	KeyAddonFlightDelay flow.FieldKey = "addon_flight_delay"
	KeyCouponCode       flow.FieldKey = "coupon_code"
	KeyEmail            flow.FieldKey = "email"
	KeyContactMobile    flow.FieldKey = "contact_mobile"
)

const (
	maxDestinations = 10

	// Annual Family plan limits.
	maxAnnualFamilyAdults   = 2
	maxAnnualFamilyChildren = 5
)

var prompts = map[flow.FieldKey]string{
	KeyPolicyType:       "Are you looking for a **Single Trip** or an **Annual Multi-Trip** policy?",
	KeyGroupTypeSingle:  "Who will be traveling? (Yourself, Family, Group of Adults, or Group of Family)",
	KeyGroupTypeAnnual:  "Who will this annual plan cover? (Yourself or Family)",
	KeyZone:             "Which region do you need coverage for? (**Asia** or **Worldwide**)",
	KeyNumAdults:        "How many adults?",
	KeyNumChildren:      "How many children?",
	KeyNumAdultsGroup:   "How many adults are in the group?",
	KeyNumHouseholds:    "How many families (households) are traveling together?",
	KeyDestination:      "Where are you traveling to? You can enter one or more countries separated by commas (max 10).",
	KeyStartDate:        "What is your travel start date (YYYY-MM-DD)?",
	KeyEndDate:          "And what is your travel end date (YYYY-MM-DD)?",
	KeyAddonPreEx:       "Do you need coverage for pre-existing medical conditions? (yes/no)",
	KeyAddonFFM:         "Add coverage for Loss of Frequent Flyer Miles? (yes/no)",
	KeyAddonFlightDelay: "Add the Flight Delay benefit? (yes/no)",
	KeyCouponCode:       "Do you have a coupon code? (If not, just say 'no')",
	KeyEmail:            "What is your email address?",
	KeyContactMobile:    "Finally, what is your 8-digit contact mobile number?",
}

// Flow is the travel product's question tree. It is stateless; all
// conversation state lives in the session.
type Flow struct{}

func New() *Flow { return &Flow{} }

// First seeds the travel context and opens with the policy type question.
func (f *Flow) First(s *session.Session) flow.FieldKey {
	s.Context.Travel = &session.TravelContext{}
	return KeyPolicyType
}

// Prompt renders the question text for a field. The household question
// carries the 1-based index of the household being asked about.
func (f *Flow) Prompt(key flow.FieldKey, s *session.Session) string {
	if key == KeyHouseholdInfo {
		n := 1
		if tc := s.Context.Travel; tc != nil && tc.Households != nil {
			n = len(tc.Households.Collected) + 1
		}
		return fmt.Sprintf("For family #%d, how many adults and children?", n)
	}
	return prompts[key]
}

// Apply validates the answer for the awaited field and writes it into the
// session. Enumerated choices are lenient (unmatched input falls back to a
// default choice); dates, counts and destinations are validated and rejected
// with a re-prompt.
func (f *Flow) Apply(key flow.FieldKey, answer string, s *session.Session) error {
	tc := s.Context.Travel
	if tc == nil {
		tc = &session.TravelContext{}
		s.Context.Travel = tc
	}

	ans := strings.TrimSpace(answer)
	lower := strings.ToLower(ans)

	switch key {
	case KeyPolicyType:
		if strings.Contains(lower, "annual") {
			tc.PolicyType = session.PolicyAnnual
			return savePayload(s, annualTripTemplate())
		}
		tc.PolicyType = session.PolicySingle
		return savePayload(s, singleTripTemplate())

	case KeyGroupTypeSingle:
		switch {
		case strings.Contains(lower, "group of families"), strings.Contains(lower, "households"):
			tc.Group = session.GroupHouseholds
		case strings.Contains(lower, "group of adults"):
			tc.Group = session.GroupAdults
		case strings.Contains(lower, "family"):
			tc.Group = session.GroupFamily
		default:
			tc.Group = session.GroupMyself
		}
		return nil

	case KeyGroupTypeAnnual:
		if strings.Contains(lower, "family") {
			tc.Group = session.GroupFamily
		} else {
			tc.Group = session.GroupMyself
		}
		return nil

	case KeyZone:
		p, err := loadPayload(s)
		if err != nil {
			return err
		}
		zone := "A3"
		if strings.Contains(lower, "asia") {
			zone = "A2"
		}
		p.Travel.Zone = &zone
		return savePayload(s, p)

	case KeyDestination:
		return f.applyDestination(key, ans, s)

	case KeyStartDate:
		date, err := parseDate(key, ans)
		if err != nil {
			return err
		}
		tc.StartDate = date
		return nil

	case KeyEndDate:
		date, err := parseDate(key, ans)
		if err != nil {
			return err
		}
		tc.EndDate = date
		return nil

	case KeyNumAdults:
		n, err := parseCount(key, ans)
		if err != nil {
			return err
		}
		if tc.Family == nil {
			tc.Family = &session.FamilyCounts{}
		}
		tc.Family.Adults = &n
		return nil

	case KeyNumChildren:
		n, err := parseCount(key, ans)
		if err != nil {
			return err
		}
		if tc.Family == nil {
			tc.Family = &session.FamilyCounts{}
		}
		tc.Family.Children = &n

		if tc.PolicyType == session.PolicyAnnual && tc.Group == session.GroupFamily {
			adults := 0
			if tc.Family.Adults != nil {
				adults = *tc.Family.Adults
			}
			if adults > maxAnnualFamilyAdults || n > maxAnnualFamilyChildren {
				// Clear both counts and re-ask from the adult count.
				tc.Family = nil
				return &flow.ConstraintError{
					ResetTo: KeyNumAdults,
					Message: "For an Annual Family plan, the maximum is 2 adults and 5 children. Let's start over with the number of travelers.",
				}
			}
		}
		return nil

	case KeyNumAdultsGroup:
		n, err := parseCount(key, ans)
		if err != nil {
			return err
		}
		tc.AdultGroup = &n
		return nil

	case KeyNumHouseholds:
		n, err := parseCount(key, ans)
		if err != nil {
			return err
		}
		tc.Households = &session.Households{Target: n, Collected: []session.HouseholdCounts{}}
		return nil

	case KeyHouseholdInfo:
		hc, err := parseHousehold(key, ans)
		if err != nil {
			return err
		}
		if tc.Households == nil {
			return fmt.Errorf("household answer without a household count")
		}
		tc.Households.Collected = append(tc.Households.Collected, hc)
		return nil

	case KeyAddonPreEx, KeyAddonFFM, KeyAddonFlightDelay:
		p, err := loadPayload(s)
		if err != nil {
			return err
		}
		p.Travel.SelectedAddOns[addOnKey(key)] = AddOn{Selected: strings.Contains(lower, "yes")}
		return savePayload(s, p)

	case KeyCouponCode:
		p, err := loadPayload(s)
		if err != nil {
			return err
		}
		code := ans
		if lower == "no" {
			// Explicitly declined, distinct from "not yet asked".
			code = ""
		}
		p.Promotion.CouponCode = &code
		return savePayload(s, p)

	case KeyEmail:
		p, err := loadPayload(s)
		if err != nil {
			return err
		}
		p.Leads.Email = &ans
		return savePayload(s, p)

	case KeyContactMobile:
		p, err := loadPayload(s)
		if err != nil {
			return err
		}
		p.Leads.ContactMobile = &ans
		return savePayload(s, p)
	}

	return fmt.Errorf("unknown travel field %q", key)
}

// applyDestination resolves a comma-separated destination list against the
// country table. The whole answer is rejected if any name is unrecognized;
// nothing is committed partially.
func (f *Flow) applyDestination(key flow.FieldKey, ans string, s *session.Session) error {
	parts := strings.Split(ans, ",")
	if len(parts) > maxDestinations {
		return &flow.ValidationError{
			Field:   key,
			Message: "You can select a maximum of 10 countries. Please provide your destination(s) again.",
		}
	}

	codes := make([]string, 0, len(parts))
	var unknown []string
	for _, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		if code, ok := countryCodes[name]; ok {
			codes = append(codes, code)
		} else {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return &flow.ValidationError{
			Field:   key,
			Message: fmt.Sprintf("I don't have information for: %s. Please choose from the available destinations.", strings.Join(unknown, ", ")),
		}
	}

	p, err := loadPayload(s)
	if err != nil {
		return err
	}
	p.Travel.CountryCode = codes
	return savePayload(s, p)
}

// Next returns the first unanswered applicable field in the fixed order for
// the chosen branch, or flow.Done once everything is collected.
func (f *Flow) Next(s *session.Session) flow.FieldKey {
	tc := s.Context.Travel
	if tc == nil || tc.PolicyType == "" {
		return KeyPolicyType
	}
	if tc.Group == "" {
		if tc.PolicyType == session.PolicyAnnual {
			return KeyGroupTypeAnnual
		}
		return KeyGroupTypeSingle
	}

	p, err := loadPayload(s)
	if err != nil {
		return KeyPolicyType
	}

	if tc.PolicyType == session.PolicyAnnual {
		if p.Travel.Zone == nil {
			return KeyZone
		}
		if tc.Group == session.GroupFamily {
			if tc.Family == nil || tc.Family.Adults == nil {
				return KeyNumAdults
			}
			if tc.Family.Children == nil {
				return KeyNumChildren
			}
		}
		if _, ok := p.Travel.SelectedAddOns[addOnPreEx]; !ok {
			return KeyAddonPreEx
		}
	} else {
		switch tc.Group {
		case session.GroupFamily:
			if tc.Family == nil || tc.Family.Adults == nil {
				return KeyNumAdults
			}
			if tc.Family.Children == nil {
				return KeyNumChildren
			}
		case session.GroupAdults:
			if tc.AdultGroup == nil {
				return KeyNumAdultsGroup
			}
		case session.GroupHouseholds:
			if tc.Households == nil {
				return KeyNumHouseholds
			}
			if len(tc.Households.Collected) < tc.Households.Target {
				return KeyHouseholdInfo
			}
		}
		if len(p.Travel.CountryCode) == 0 {
			return KeyDestination
		}
		if tc.StartDate == "" {
			return KeyStartDate
		}
		if tc.EndDate == "" {
			return KeyEndDate
		}
		// Presence in the add-on map is the completion signal, even when
		// the add-on was declined.
		if _, ok := p.Travel.SelectedAddOns[addOnPreEx]; !ok {
			return KeyAddonPreEx
		}
		if _, ok := p.Travel.SelectedAddOns[addOnLossFFM]; !ok {
			return KeyAddonFFM
		}
		if _, ok := p.Travel.SelectedAddOns[addOnFlightDelay]; !ok {
			return KeyAddonFlightDelay
		}
	}

	if p.Promotion.CouponCode == nil {
		return KeyCouponCode
	}
	if p.Leads.Email == nil || *p.Leads.Email == "" {
		return KeyEmail
	}
	if p.Leads.ContactMobile == nil || *p.Leads.ContactMobile == "" {
		return KeyContactMobile
	}
	return flow.Done
}

// Finalize derives the traveler arrays, group flags and trip duration from
// the branch answers and stores the submission-ready payload.
func (f *Flow) Finalize(s *session.Session) (string, error) {
	tc := s.Context.Travel
	if tc == nil {
		return "", fmt.Errorf("finalize without travel context")
	}
	p, err := loadPayload(s)
	if err != nil {
		return "", err
	}

	switch tc.Group {
	case session.GroupMyself:
		total := 1
		p.Travel.NumberOfTravellers.Adult = []int{1}
		p.Travel.NumberOfTravellers.Child = []int{0}
		p.Travel.NumberOfTravellers.Total = &total

	case session.GroupFamily:
		var adults, children int
		if tc.Family != nil {
			if tc.Family.Adults != nil {
				adults = *tc.Family.Adults
			}
			if tc.Family.Children != nil {
				children = *tc.Family.Children
			}
		}
		total := adults + children
		p.Travel.NumberOfTravellers.Adult = []int{adults}
		p.Travel.NumberOfTravellers.Child = []int{children}
		p.Travel.NumberOfTravellers.Total = &total
		if children > 0 {
			p.Travel.WithChildren = "yes"
		}
		if adults > 1 {
			p.Travel.WithSpouse = "yes"
		}

	case session.GroupAdults:
		var adults int
		if tc.AdultGroup != nil {
			adults = *tc.AdultGroup
		}
		ones := make([]int, adults)
		zeros := make([]int, adults)
		for i := range ones {
			ones[i] = 1
		}
		p.Travel.NumberOfTravellers.Adult = ones
		p.Travel.NumberOfTravellers.Child = zeros
		p.Travel.NumberOfTravellers.Total = &adults
		p.Travel.WithGroupOfAdults = "yes"

	case session.GroupHouseholds:
		var households []session.HouseholdCounts
		if tc.Households != nil {
			households = tc.Households.Collected
		}
		adultList := make([]int, 0, len(households))
		childList := make([]int, 0, len(households))
		info := make([]HouseholdInfo, 0, len(households))
		total := 0
		for _, h := range households {
			adultList = append(adultList, h.Adults)
			childList = append(childList, h.Children)
			total += h.Adults + h.Children
			hi := HouseholdInfo{WithChildren: "no", WithSpouse: "no"}
			if h.Children > 0 {
				hi.WithChildren = "yes"
			}
			if h.Adults > 1 {
				hi.WithSpouse = "yes"
			}
			info = append(info, hi)
		}
		p.Travel.NumberOfTravellers.Adult = adultList
		p.Travel.NumberOfTravellers.Child = childList
		p.Travel.NumberOfTravellers.Total = &total
		p.Travel.NumberOfTravellers.Group = len(households)
		p.Travel.WithGroupOfHouseholds = "yes"
		p.Travel.HouseholdsInfo = info
	}

	if tc.PolicyType == session.PolicySingle {
		days, err := tripDays(tc.StartDate, tc.EndDate)
		if err != nil {
			return "", err
		}
		p.Travel.NumberOfDays = &days
	}

	if err := savePayload(s, p); err != nil {
		return "", err
	}
	return "Thank you, I have all the information. Generating your quote now...", nil
}

// tripDays computes the inclusive day count between two dates, floored at 1.
func tripDays(start, end string) (int, error) {
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return 0, fmt.Errorf("parse start date: %w", err)
	}
	to, err := time.Parse("2006-01-02", end)
	if err != nil {
		return 0, fmt.Errorf("parse end date: %w", err)
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return days, nil
}

func addOnKey(key flow.FieldKey) string {
	switch key {
	case KeyAddonFFM:
		return addOnLossFFM
	case KeyAddonFlightDelay:
		return addOnFlightDelay
	default:
		return addOnPreEx
	}
}

// parseDate normalizes slashes to dashes and validates YYYY-MM-DD.
func parseDate(key flow.FieldKey, ans string) (string, error) {
	date := strings.ReplaceAll(ans, "/", "-")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", &flow.ValidationError{
			Field:   key,
			Message: "That doesn't look like a valid date format. Please use YYYY-MM-DD.",
		}
	}
	return date, nil
}

// parseCount parses a non-negative base-10 count, rejecting malformed input
// with a re-prompt instead of letting it escape the field layer.
func parseCount(key flow.FieldKey, ans string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(ans))
	if err != nil || n < 0 {
		return 0, &flow.ValidationError{
			Field:   key,
			Message: "Please answer with a whole number (for example: 2).",
		}
	}
	return n, nil
}

// parseHousehold splits an "adults and children" answer on commas and the
// word "and", expecting the two counts in that order.
func parseHousehold(key flow.FieldKey, ans string) (session.HouseholdCounts, error) {
	normalized := strings.ReplaceAll(strings.ToLower(ans), "and", ",")
	parts := strings.Split(normalized, ",")
	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		if t := strings.TrimSpace(part); t != "" {
			fields = append(fields, t)
		}
	}
	if len(fields) < 2 {
		return session.HouseholdCounts{}, &flow.ValidationError{
			Field:   key,
			Message: "Please give the number of adults and children, for example: 2, 1.",
		}
	}
	adults, err1 := strconv.Atoi(fields[0])
	children, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || adults < 0 || children < 0 {
		return session.HouseholdCounts{}, &flow.ValidationError{
			Field:   key,
			Message: "Please give the number of adults and children, for example: 2, 1.",
		}
	}
	return session.HouseholdCounts{Adults: adults, Children: children}, nil
}

func loadPayload(s *session.Session) (*Payload, error) {
	if len(s.Collected.Travel) == 0 {
		return nil, fmt.Errorf("no travel payload in session")
	}
	var p Payload
	if err := json.Unmarshal(s.Collected.Travel, &p); err != nil {
		return nil, fmt.Errorf("unmarshal travel payload: %w", err)
	}
	return &p, nil
}

func savePayload(s *session.Session, p *Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal travel payload: %w", err)
	}
	s.Collected.Travel = data
	return nil
}
