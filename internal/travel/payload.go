package travel

// Payload is the quote submission structure for the travel products.
// Field names and shapes match the quoting API contract exactly; pointer
// fields distinguish "not yet answered" from a valid zero answer.
type Payload struct {
	ProductCode string         `json:"ProductCode"`
	Media       Media          `json:"media"`
	Travel      Details        `json:"travel"`
	Promotion   Promotion      `json:"promotion"`
	Leads       Leads          `json:"leads"`
	CEPParams   map[string]any `json:"CEPParams"`
}

type Media struct {
	WCC string `json:"wcc"`
}

type Details struct {
	PolicyType            string           `json:"policy_type"`
	CountryCode           []string         `json:"country_code"`
	NumberOfDays          *int             `json:"number_of_days"`
	Zone                  *string          `json:"zone"`
	WithChildren          string           `json:"with_children"`
	WithSpouse            string           `json:"with_spouse"`
	WithGroupOfAdults     string           `json:"with_group_of_adults"`
	WithGroupOfHouseholds string           `json:"with_group_of_households"`
	Plan                  string           `json:"plan"`
	SelectedAddOns        map[string]AddOn `json:"selectedAddOns"`
	NumberOfTravellers    Travellers       `json:"number_of_travellers"`
	HouseholdsInfo        []HouseholdInfo  `json:"households_info,omitempty"`
}

type AddOn struct {
	Selected bool `json:"selected"`
}

type Travellers struct {
	Total *int  `json:"total"`
	Child []int `json:"child"`
	Adult []int `json:"adult"`
	Group int   `json:"group"`
}

type Promotion struct {
	CouponCode *string `json:"coupon_code"`
}

type Leads struct {
	Email         *string `json:"email"`
	ContactMobile *string `json:"contact_mobile"`
}

type HouseholdInfo struct {
	WithChildren string `json:"with_children"`
	WithSpouse   string `json:"with_spouse"`
}

// Add-on keys in the quoting API.
const (
	addOnPreEx       = "preExAddOn"
	addOnLossFFM     = "lossFFMAddOn"
	addOnFlightDelay = "flightDelayAddOn"
)

func one() *int { n := 1; return &n }

// singleTripTemplate returns the base payload for Single Trip policies (TVP).
func singleTripTemplate() *Payload {
	return &Payload{
		ProductCode: "TVP",
		Media:       Media{WCC: "HLS"},
		Travel: Details{
			PolicyType:            "single",
			CountryCode:           []string{},
			WithChildren:          "no",
			WithSpouse:            "no",
			WithGroupOfAdults:     "no",
			WithGroupOfHouseholds: "no",
			Plan:                  "gold",
			SelectedAddOns:        map[string]AddOn{},
			NumberOfTravellers:    Travellers{Child: []int{}, Adult: []int{}, Group: 1},
		},
		Promotion: Promotion{},
		Leads:     Leads{},
		CEPParams: map[string]any{},
	}
}

// annualTripTemplate returns the base payload for Annual Multi-Trip policies (TPX).
// Annual plans have no destination list and a fixed one-day duration.
func annualTripTemplate() *Payload {
	return &Payload{
		ProductCode: "TPX",
		Media:       Media{WCC: "HLS"},
		Travel: Details{
			PolicyType:            "annual",
			NumberOfDays:          one(),
			WithChildren:          "no",
			WithSpouse:            "no",
			WithGroupOfAdults:     "no",
			WithGroupOfHouseholds: "no",
			Plan:                  "gold",
			SelectedAddOns:        map[string]AddOn{},
			NumberOfTravellers:    Travellers{Child: []int{}, Adult: []int{}, Group: 1},
		},
		Promotion: Promotion{},
		Leads:     Leads{},
		CEPParams: map[string]any{},
	}
}
