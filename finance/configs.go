/*
configs.go - Fee and refund rule config rows

PURPOSE:
  Materializes the hardcoded fee schedule and refund thresholds as
  per-campus config rows for display and audit. The calculator does not
  read these back; they exist so finance staff can see the numbers the
  engine runs on, and so a future version can make them tunable.
*/
package finance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// SeedDefaults writes the default FeeConfig and RefundRuleConfig rows
// for a campus if none exist yet. Safe to call repeatedly.
func (s *Service) SeedDefaults(ctx context.Context, campus string) error {
	standard := s.Standards.ResolveOrDefault(campus)
	now := s.Clock.Now()

	existing, err := s.Store.FeeConfigs(ctx, campus)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		fees := standard.TierFor(TierStandard)
		configs := []FeeConfig{
			{Type: FeeTuition, MonthlyAmount: fees.Tuition, RefundRule: RuleHalfMonth},
			{Type: FeeMeal, MonthlyAmount: fees.Meal, RefundRule: RuleDaily},
			{Type: FeeAgency, MonthlyAmount: standard.Other.Agency, RefundRule: RuleFullMonth},
			{Type: FeeBedding, MonthlyAmount: standard.Other.Bedding, RefundRule: RuleFullMonth},
		}
		for _, cfg := range configs {
			cfg.ID = fmt.Sprintf("feecfg_%s_%s", standard.CampusID, cfg.Type)
			cfg.Name = cfg.Type.DisplayName()
			cfg.Campus = campus
			cfg.ClassTier = TierStandard
			cfg.DailyRate = cfg.MonthlyAmount.Div(decimal.NewFromInt(WorkdaysPerMonth)).Round(2)
			cfg.CreatedAt = now
			cfg.UpdatedAt = now
			if err := s.Store.SaveFeeConfig(ctx, cfg); err != nil {
				return err
			}
		}
	}

	rules, err := s.Store.RefundRules(ctx, campus)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		fees := standard.TierFor(TierStandard)
		one := decimal.NewFromInt(1)
		defaults := []RefundRuleConfig{
			{
				ID:                      fmt.Sprintf("refundrule_%s_tuition", standard.CampusID),
				Campus:                  campus,
				FeeType:                 FeeTuition,
				SickLeaveRefundRate:     one,
				PersonalLeaveRefundRate: one,
				EffectiveDate:           standard.EffectiveDate,
				CreatedBy:               autoCalculatedBy,
				CreatedAt:               now,
			},
			{
				ID:               fmt.Sprintf("refundrule_%s_meal", standard.CampusID),
				Campus:           campus,
				FeeType:          FeeMeal,
				MealRefundPerDay: fees.Meal.Div(decimal.NewFromInt(WorkdaysPerMonth)).Round(2),
				MinAbsentDays:    MealRefundMinAbsentDays,
				EffectiveDate:    standard.EffectiveDate,
				CreatedBy:        autoCalculatedBy,
				CreatedAt:        now,
			},
		}
		for _, rule := range defaults {
			if err := s.Store.SaveRefundRule(ctx, rule); err != nil {
				return err
			}
		}
	}

	return nil
}

// FeeConfigs lists the fee config rows for a campus.
func (s *Service) FeeConfigs(ctx context.Context, campus string) ([]FeeConfig, error) {
	return s.Store.FeeConfigs(ctx, campus)
}

// RefundRuleConfigs lists the refund rule rows for a campus.
func (s *Service) RefundRuleConfigs(ctx context.Context, campus string) ([]RefundRuleConfig, error) {
	return s.Store.RefundRules(ctx, campus)
}
