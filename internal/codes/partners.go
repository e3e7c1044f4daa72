package codes

// Counterpart area codes of the three tracked economies.
const (
	PartnerEU    = "B0"
	PartnerChina = "CN"
	PartnerUS    = "US"
)

// TrackedPartners lists the tracked counterparts in tie-break priority order:
// when two partners report the same maximum, the earlier one wins.
var TrackedPartners = []string{PartnerEU, PartnerChina, PartnerUS}

// Category identifies the dominant source economy. CategoryNone is used when
// no partner could be resolved.
type Category int

const (
	CategoryNone  Category = 0
	CategoryChina Category = 1
	CategoryEU    Category = 2
	CategoryUS    Category = 3
)

var partnerCategories = map[string]Category{
	PartnerChina: CategoryChina,
	PartnerEU:    CategoryEU,
	PartnerUS:    CategoryUS,
}

var partnerLabels = map[string]string{
	PartnerEU:    "European Union",
	PartnerChina: "China",
	PartnerUS:    "United States",
}

// CategoryFor maps a partner code to its category. Codes outside
// TrackedPartners, including "", map to CategoryNone.
func CategoryFor(partner string) Category {
	return partnerCategories[partner]
}

// PartnerLabel returns the display name of a tracked partner.
func PartnerLabel(partner string) (string, bool) {
	label, ok := partnerLabels[partner]
	return label, ok
}

// IsTracked reports whether partner is one of TrackedPartners.
func IsTracked(partner string) bool {
	_, ok := partnerCategories[partner]
	return ok
}
