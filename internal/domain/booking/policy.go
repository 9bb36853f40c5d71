package booking

import (
	"errors"
	"fmt"
)

// Tier is the account's access level on this system.
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierFree, "":
		return TierFree, nil
	case TierPaid:
		return TierPaid, nil
	}
	return "", fmt.Errorf("invalid account tier %q", s)
}

// AccessPolicy caps what an account tier may ask the engine to do.
// MaxActiveSupplies nil means unlimited.
type AccessPolicy struct {
	MaxActiveSupplies *int
	AnyDate           bool
	AnyCoefficient    bool
}

var freeTierMax = 3

// PolicyFor looks the policy up by tier. Unknown tiers get the free policy.
func PolicyFor(tier Tier) AccessPolicy {
	if tier == TierPaid {
		return AccessPolicy{AnyDate: true, AnyCoefficient: true}
	}
	return AccessPolicy{MaxActiveSupplies: &freeTierMax}
}

// ErrSupplyLimitExceeded rejects a dispatch whose admitted supply count is
// over the tier cap. The whole dispatch fails closed; nothing is truncated.
var ErrSupplyLimitExceeded = errors.New("active supply limit exceeded")

// Admit filters an account's active supplies against the policy.
// Supplies whose settings need a feature the tier lacks are dropped
// individually; exceeding the count cap rejects the whole set.
func Admit(supplies []Supply, policy AccessPolicy) ([]Supply, error) {
	var admitted []Supply
	for _, s := range supplies {
		if !s.Status.Active || s.Status.Booked {
			continue
		}
		if s.Settings.Mode == ModeAnyDate && !policy.AnyDate {
			continue
		}
		if s.Settings.Coefficient.Any && !policy.AnyCoefficient {
			continue
		}
		admitted = append(admitted, s)
	}
	if policy.MaxActiveSupplies != nil && len(admitted) > *policy.MaxActiveSupplies {
		return nil, fmt.Errorf("%w: %d active, limit %d",
			ErrSupplyLimitExceeded, len(admitted), *policy.MaxActiveSupplies)
	}
	return admitted, nil
}
