package types

// PlanLimits is the pair of enforced usage limits projected from a plan
// tier. The rest of the product reads these for entitlement enforcement;
// this service is the sole writer.
type PlanLimits struct {
	MaxChildren int `json:"max_children"`
	MaxStaff    int `json:"max_staff"`
}

// planLimitsTable is the static projection from plan tier to limits.
var planLimitsTable = map[PlanTier]PlanLimits{
	PlanTierTrial:        {MaxChildren: 15, MaxStaff: 5},
	PlanTierStarter:      {MaxChildren: 30, MaxStaff: 10},
	PlanTierProfessional: {MaxChildren: 75, MaxStaff: 25},
	PlanTierEnterprise:   {MaxChildren: 250, MaxStaff: 75},
	PlanTierCancelled:    {MaxChildren: 0, MaxStaff: 0},
}

// mostRestrictiveLimits is the fallback for unrecognized tiers: fail safe
// by under-provisioning, never over-provisioning.
var mostRestrictiveLimits = PlanLimits{MaxChildren: 15, MaxStaff: 5}

// ProjectEntitlements derives the enforced limits for a plan tier and
// lifecycle status. Cancelled always projects to zero limits regardless of
// tier. Suspended tenants keep their limits; write-access revocation is an
// enforcement concern elsewhere in the product.
func ProjectEntitlements(tier PlanTier, status TenantStatus) PlanLimits {
	if status == TenantStatusCancelled {
		return PlanLimits{}
	}
	if limits, ok := planLimitsTable[tier]; ok {
		return limits
	}
	return mostRestrictiveLimits
}

// KnownPlanTiers returns the tiers present in the static limits table.
func KnownPlanTiers() []PlanTier {
	return []PlanTier{
		PlanTierTrial,
		PlanTierStarter,
		PlanTierProfessional,
		PlanTierEnterprise,
		PlanTierCancelled,
	}
}
