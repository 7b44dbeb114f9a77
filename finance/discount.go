/*
discount.go - Student discount application

PURPOSE:
  Applies a student's individual discount configuration on top of the
  resolved campus standard. Pure computation, no store access.

RESOLUTION ORDER (fixed, see FeeDiscount):
  1. custom absolute overrides replace the base tuition/meal outright
  2. percentage discount multiplies tuition only, rounded to the yuan
  3. fixed discount subtracts from tuition, floored at 0
  4. per-item exemptions zero their item last, overriding steps 1-3

SEE ALSO:
  - standards.go: where the base fees come from
  - payment.go: the independent payment-time discount path
*/
package finance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	decimalZero    = decimal.Zero
	decimalHundred = decimal.NewFromInt(100)
)

// ComputeActualFees resolves the student's billable monthly fees from
// the campus standard and the student's discount configuration. Total
// covers recurring items only.
func ComputeActualFees(student *Student, standard *CampusFeeStandard) ActualFees {
	fees := standard.TierFor(student.ClassTier)
	tuition := fees.Tuition
	meal := fees.Meal
	agency := standard.Other.Agency
	bedding := standard.Other.Bedding

	d := student.Discount
	hasDiscount := d != nil && d.HasDiscount
	var details []string

	if hasDiscount {
		if d.CustomTuition != nil {
			tuition = *d.CustomTuition
			details = append(details, fmt.Sprintf("自定义保教费%s元", tuition.String()))
		}
		if d.CustomMealFee != nil {
			meal = *d.CustomMealFee
			details = append(details, fmt.Sprintf("自定义伙食费%s元", meal.String()))
		}

		switch d.Type {
		case DiscountPercentage:
			// Percentage applies to tuition only, rounded to the yuan.
			tuition = tuition.Mul(decimal.NewFromInt(1).Sub(d.Value.Div(decimalHundred))).Round(0)
			details = append(details, fmt.Sprintf("保教费优惠%s%%", d.Value.String()))
		case DiscountFixed:
			tuition = tuition.Sub(d.Value)
			if tuition.IsNegative() {
				tuition = decimalZero
			}
			details = append(details, fmt.Sprintf("保教费减免%s元", d.Value.String()))
		}

		// Exemptions run last and win unconditionally.
		for _, item := range d.ExemptItems {
			switch item {
			case FeeTuition:
				tuition = decimalZero
			case FeeMeal:
				meal = decimalZero
			case FeeAgency:
				agency = decimalZero
			case FeeBedding:
				bedding = decimalZero
			}
			details = append(details, "免收"+item.DisplayName())
		}

		if d.Reason != "" {
			details = append(details, d.Reason)
		}
	}

	return ActualFees{
		Tuition:         tuition,
		Meal:            meal,
		Agency:          agency,
		Bedding:         bedding,
		Total:           tuition.Add(meal),
		HasDiscount:     hasDiscount,
		DiscountDetails: strings.Join(details, "；"),
	}
}
