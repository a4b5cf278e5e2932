package sla

import "strings"

// ResolveTier maps a priority name to an SLA tier. Unknown priorities fall
// back to the built-in map and finally to FallbackTier.
func (p Policy) ResolveTier(priority string) string {
	priority = strings.TrimSpace(priority)
	if priority != "" {
		if tier, ok := p.PriorityTiers[priority]; ok {
			return tier
		}
		for k, tier := range p.PriorityTiers {
			if strings.EqualFold(k, priority) {
				return tier
			}
		}
		if tier, ok := defaultPriorityTiers[strings.ToLower(priority)]; ok {
			return tier
		}
	}
	return FallbackTier
}

// TargetsFor returns the reaction and resolution allowances for a tier and issue type.
func (p Policy) TargetsFor(tier, issueType string) Targets {
	t := Targets{ReactionConstrained: true}

	switch v, ok := lookupFold(p.TierReactionMinutes, tier); {
	case ok && v > 0:
		t.Reaction = v
	case p.ReactionMinutes > 0:
		t.Reaction = p.ReactionMinutes
	default:
		t.Reaction = DefaultReactionMinutes
	}

	if v, ok := lookupFold(p.TierResolutionMinutes, tier); ok && v > 0 {
		t.Resolution = v
	} else {
		t.Resolution = DefaultResolutionMinutes
	}

	if p.IsTask(issueType) {
		t.Resolution = p.TaskResolutionMinutes
		if t.Resolution <= 0 {
			t.Resolution = DefaultTaskResolutionMinutes
		}
		t.ReactionConstrained = false
	}

	return t
}

// Tolerance returns the compliance share (percent) expected for a tier or
// priority group, preferring the tier.
func (p Policy) Tolerance(tier, priority string) (float64, bool) {
	if v, ok := lookupFold(p.Tolerances, tier); ok {
		return v, true
	}
	return lookupFold(p.Tolerances, priority)
}

// Within reports whether an actual duration meets its target.
func Within(actual, target float64) bool {
	return actual <= target+complianceEpsilon
}

// Compliance evaluates reaction and resolution independently. Unconstrained
// reaction targets are always met.
func Compliance(d Durations, t Targets) (reactionMet, resolutionMet bool) {
	reactionMet = !t.ReactionConstrained || Within(d.Reaction, t.Reaction)
	resolutionMet = Within(d.Resolution, t.Resolution)
	return reactionMet, resolutionMet
}
