// Package priority computes the two priority signals used by the queueing
// layer: a class tier for live-queue ordering (ascending weight) and an
// escalation score for cross-department ranking (descending). The orderings
// are intentionally inverse conventions and must stay that way.
package priority

import "github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"

// Classifier resolves tiers and escalation scores from a rules table.
type Classifier struct {
	rules *Rules
}

// NewClassifier builds a classifier; nil rules fall back to the defaults.
func NewClassifier(rules *Rules) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify looks the client handle up against the tier allow-lists.
// Unmatched clients default to NONE.
func (c *Classifier) Classify(clientHandle string) domain.ClassTier {
	switch {
	case contains(c.rules.DiamondClients, clientHandle):
		return domain.TierDiamond
	case contains(c.rules.GoldClients, clientHandle):
		return domain.TierGold
	case contains(c.rules.SilverClients, clientHandle):
		return domain.TierSilver
	default:
		return domain.TierNone
	}
}

// Score computes the escalation urgency for a forwarded ticket: account
// type base weight plus tier bonus plus complexity factor. Higher = more
// urgent.
func (c *Classifier) Score(accountType string, tier domain.ClassTier, complexity Complexity) int {
	score := c.rules.AccountTypeWeights[accountType]
	score += c.rules.TierBonuses[tier]
	score += c.rules.ComplexityFactors[complexity]
	return score
}

// ComplexityOf buckets an issue type via the configured allow/deny lists;
// anything unlisted is medium.
func (c *Classifier) ComplexityOf(issueType string) Complexity {
	if contains(c.rules.HighComplexity, issueType) {
		return ComplexityHigh
	}
	if contains(c.rules.LowComplexity, issueType) {
		return ComplexityLow
	}
	return ComplexityMedium
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
