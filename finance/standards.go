/*
standards.go - Campus fee schedules and name resolution

PURPOSE:
  Holds the canonical 2025 fee-standard table for every campus and
  resolves free-form campus names against it. Resolution is exact match
  first, then an ordered alias substring scan; a miss falls back to a
  documented default schedule rather than an error, because billing must
  proceed even for a campus the table does not know yet.

KEY CONCEPTS:
  - CampusFeeStandard: one campus row, tier fees plus one-time items
  - StandardsResolver: name → standard lookup with the fallback policy
  - campusAliases: the fixed scan order; earlier aliases win on overlap

SEE ALSO:
  - discount.go: applies student discounts on top of the resolved row
  - configs.go: materializes these figures as per-campus FeeConfig rows
*/
package finance

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STANDARD TABLE TYPES
// =============================================================================

// TierFees is the recurring monthly fee pair for one class tier.
type TierFees struct {
	Tuition decimal.Decimal
	Meal    decimal.Decimal
}

// OtherFees are the one-time items charged at enrollment.
type OtherFees struct {
	Agency  decimal.Decimal
	Bedding decimal.Decimal
}

// CampusFeeStandard is one campus's published fee schedule. Excellence
// and Music are nil for campuses that do not offer those tiers.
type CampusFeeStandard struct {
	CampusID   string
	CampusName string

	Standard   TierFees
	Excellence *TierFees
	Music      *TierFees

	Other         OtherFees
	EffectiveDate string
}

// TierFor returns the fee pair for the given tier, falling back to the
// standard tier when the campus does not offer the requested one.
func (s *CampusFeeStandard) TierFor(tier ClassTier) TierFees {
	switch tier.OrDefault() {
	case TierExcellence:
		if s.Excellence != nil {
			return *s.Excellence
		}
	case TierMusic:
		if s.Music != nil {
			return *s.Music
		}
	}
	return s.Standard
}

// =============================================================================
// THE 2025 TABLE
// =============================================================================

func yuan(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func tier(tuition, meal int64) *TierFees {
	return &TierFees{Tuition: yuan(tuition), Meal: yuan(meal)}
}

const standardsEffectiveDate = "2025-09-01"

var defaultOtherFees = OtherFees{Agency: yuan(1100), Bedding: yuan(428)}

// DefaultStandard is the fallback schedule applied when a campus name
// resolves to nothing. Using it is policy, not an error.
var DefaultStandard = CampusFeeStandard{
	CampusID:      "default",
	CampusName:    "默认标准",
	Standard:      TierFees{Tuition: yuan(1200), Meal: yuan(330)},
	Other:         defaultOtherFees,
	EffectiveDate: standardsEffectiveDate,
}

// Standards2025 is the published schedule, one row per campus.
var Standards2025 = []CampusFeeStandard{
	{CampusID: "nanjiang", CampusName: "南江", Standard: TierFees{Tuition: yuan(1180), Meal: yuan(330)}, Other: defaultOtherFees, EffectiveDate: standardsEffectiveDate},
	{CampusID: "gaoxin", CampusName: "高新", Standard: TierFees{Tuition: yuan(1080), Meal: yuan(330)}, Other: defaultOtherFees, EffectiveDate: standardsEffectiveDate},
	{CampusID: "xinshi", CampusName: "新市花园", Standard: TierFees{Tuition: yuan(1250), Meal: yuan(330)}, Other: defaultOtherFees, EffectiveDate: standardsEffectiveDate},
	{CampusID: "chuangyue", CampusName: "创越", Standard: TierFees{Tuition: yuan(1080), Meal: yuan(330)}, Music: tier(1760, 330), Other: defaultOtherFees, EffectiveDate: standardsEffectiveDate},
	{CampusID: "no7", CampusName: "七幼", Standard: TierFees{Tuition: yuan(1280), Meal: yuan(330)}, Music: tier(1530, 330), Other: defaultOtherFees, EffectiveDate: standardsEffectiveDate},
	{CampusID: "no8", CampusName: "八幼", Standard: TierFees{Tuition: yuan(1430), Meal: yuan(330)}, Music: tier(1430, 330), Other: defaultOtherFees, EffectiveDate: standardsEffectiveDate},
	{CampusID: "no9", CampusName: "九幼", Standard: TierFees{Tuition: yuan(1280), Meal: yuan(330)}, Excellence: tier(1580, 330), Other: defaultOtherFees, EffectiveDate: standardsEffectiveDate},
	{CampusID: "no10", CampusName: "十幼", Standard: TierFees{Tuition: yuan(1280), Meal: yuan(330)}, Other: defaultOtherFees, EffectiveDate: standardsEffectiveDate},
	{CampusID: "no12", CampusName: "十二幼", Standard: TierFees{Tuition: yuan(1360), Meal: yuan(330)}, Excellence: tier(3580, 480), Other: defaultOtherFees, EffectiveDate: standardsEffectiveDate},
	{CampusID: "no17", CampusName: "十七幼", Standard: TierFees{Tuition: yuan(2100), Meal: yuan(330)}, Excellence: tier(2500, 480), Music: tier(3080, 480), Other: defaultOtherFees, EffectiveDate: standardsEffectiveDate},
}

// campusAliases is the alias scan order. The list is ordered, and the
// first alias contained in the input wins; the order is part of the
// resolution contract.
var campusAliases = []string{
	"南江", "高新", "新市花园", "创越", "七幼", "八幼", "九幼", "十幼", "十二幼", "十七幼",
}

// =============================================================================
// RESOLVER
// =============================================================================

// StandardsResolver resolves campus names against a fee-standard table.
// The zero value is not usable; construct with NewStandardsResolver.
type StandardsResolver struct {
	byName  map[string]*CampusFeeStandard
	ordered []CampusFeeStandard
}

// NewStandardsResolver builds a resolver over the 2025 table.
func NewStandardsResolver() *StandardsResolver {
	return NewStandardsResolverWith(Standards2025)
}

// NewStandardsResolverWith builds a resolver over a caller-supplied
// table, used by tests and by future-year schedules.
func NewStandardsResolverWith(table []CampusFeeStandard) *StandardsResolver {
	r := &StandardsResolver{
		byName:  make(map[string]*CampusFeeStandard, len(table)),
		ordered: table,
	}
	for i := range r.ordered {
		r.byName[r.ordered[i].CampusName] = &r.ordered[i]
	}
	return r
}

// Resolve maps a campus name to its fee standard: exact match first,
// then the ordered alias substring scan. Returns ErrCampusNotFound on a
// miss; callers that want the fallback policy use ResolveOrDefault.
func (r *StandardsResolver) Resolve(campus string) (*CampusFeeStandard, error) {
	if s, ok := r.byName[campus]; ok {
		return s, nil
	}
	for _, alias := range campusAliases {
		if !strings.Contains(campus, alias) {
			continue
		}
		if s, ok := r.byName[alias]; ok {
			return s, nil
		}
	}
	return nil, ErrCampusNotFound
}

// ResolveOrDefault is Resolve with the documented fallback applied.
func (r *StandardsResolver) ResolveOrDefault(campus string) *CampusFeeStandard {
	if s, err := r.Resolve(campus); err == nil {
		return s
	}
	def := DefaultStandard
	return &def
}

// All returns the table rows in their published order.
func (r *StandardsResolver) All() []CampusFeeStandard {
	out := make([]CampusFeeStandard, len(r.ordered))
	copy(out, r.ordered)
	return out
}
