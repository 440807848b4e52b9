package types

import (
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/samber/lo"
)

// PlanTier is the product plan associated with a tenant subscription.
type PlanTier string

const (
	PlanTierTrial        PlanTier = "trial"
	PlanTierStarter      PlanTier = "starter"
	PlanTierProfessional PlanTier = "professional"
	PlanTierEnterprise   PlanTier = "enterprise"
	PlanTierCancelled    PlanTier = "cancelled"
)

// LowestPaidTier is the default applied when a subscription carries billable
// line items but no explicit plan metadata. Plan fidelity is never silently
// downgraded to free.
const LowestPaidTier = PlanTierStarter

func (p PlanTier) Validate() error {
	allowed := []PlanTier{
		PlanTierTrial,
		PlanTierStarter,
		PlanTierProfessional,
		PlanTierEnterprise,
		PlanTierCancelled,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewErrorf("invalid plan tier: %s", p).
			WithHint("Please provide a valid plan tier").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
