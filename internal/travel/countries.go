package travel

// countryCodes maps user-entered destination names (lowercase) to the
// quoting API's country codes. Hand-maintained static configuration; add
// new destinations here.
var countryCodes = map[string]string{
	"albania": "ALB", "antarctica": "ATA", "argentina": "ARG",
	"australia": "AUS", "austria": "AUS", "bahrain": "BAH",
	"bangladesh": "BAN", "belgium": "BEL", "bhutan": "BTU",
	"bolivia": "BOL", "bosnia and herzegovina": "BIH", "brazil": "BRA",
	"brunei": "BRU", "bulgaria": "BUL", "cambodia": "CAM",
	"canada": "CAN", "cayman islands": "CYM", "chile": "CHL",
	"china (excluding inner mongolia)": "CHI", "colombia": "COL",
	"costa rica": "COS", "croatia": "HRV", "cruise to nowhere": "CRU",
	"cyprus": "CYP", "czech republic": "CZE", "denmark": "DEN",
	"egypt": "EGY", "estonia": "EST", "fiji": "FJI",
	"finland": "FIN", "france": "FRA", "french polynesia": "PYF",
	"germany": "GER", "greece": "GRE", "hong kong": "HKG",
	"hungary": "HUN", "iceland": "ICE", "india": "INN",
	"indonesia": "IND", "ireland": "IRE", "israel": "ISR",
	"italy": "ITA", "japan": "JPN", "jordan": "JOR",
	"kazakhstan": "KAZ", "kenya": "KEN", "korea": "KOR",
	"kuwait": "KUW", "kyrgyzstan": "KGZ", "laos": "LAO",
}
