package family

// Payload is the quote submission structure for Family Protect (FAC).
// Field names match the quoting API contract; pointer fields distinguish
// "not yet answered" from a valid zero answer.
type Payload struct {
	ProductCode            string  `json:"product_code"`
	PolicyInceptionDate    *string `json:"policyInceptionDate"`
	MediaWCC               string  `json:"mediaWCC"`
	IsCEPCustomer          bool    `json:"IsCEPCustomer"`
	IsCEPFirstTimeCustomer bool    `json:"IsCEPFirstTimeCustomer"`
	HasRider               bool    `json:"hasRider"`
	PremiumType            *string `json:"premiumType"`
	PromoCode              *string `json:"promoCode"`
	CEPReferralCode        *string `json:"CEPReferralCode"`
	WithChildren           bool    `json:"withChildren"`
	WithSpouse             bool    `json:"withSpouse"`
	Leads                  *Leads  `json:"leads,omitempty"`
}

// Leads carries the contact details collected during the conversation.
// It is attached at finalization, once the transient context is dropped.
type Leads struct {
	Email         string `json:"email"`
	ContactMobile string `json:"contact_mobile"`
}

// template returns the base payload for Family Protect policies.
func template() *Payload {
	return &Payload{
		ProductCode: "FAC",
		MediaWCC:    "HLS",
		HasRider:    true,
	}
}
