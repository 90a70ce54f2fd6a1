package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
)

func testRules() *Rules {
	rules := DefaultRules()
	rules.DiamondClients = []string{"acme-corp"}
	rules.GoldClients = []string{"globex"}
	rules.SilverClients = []string{"initech"}
	return rules
}

func TestClassify(t *testing.T) {
	c := NewClassifier(testRules())

	assert.Equal(t, domain.TierDiamond, c.Classify("acme-corp"))
	assert.Equal(t, domain.TierGold, c.Classify("globex"))
	assert.Equal(t, domain.TierSilver, c.Classify("initech"))
	assert.Equal(t, domain.TierNone, c.Classify("unknown-client"))
}

func TestTierWeightOrdering(t *testing.T) {
	// Smaller weight = served first. DIAMOND < GOLD < SILVER < NONE.
	assert.Less(t, domain.TierDiamond.Weight(), domain.TierGold.Weight())
	assert.Less(t, domain.TierGold.Weight(), domain.TierSilver.Weight())
	assert.Less(t, domain.TierSilver.Weight(), domain.TierNone.Weight())
	assert.Greater(t, domain.ClassTier("BOGUS").Weight(), domain.TierNone.Weight())
}

func TestScore(t *testing.T) {
	c := NewClassifier(testRules())

	enterprise := c.Score("ENTERPRISE", domain.TierDiamond, ComplexityHigh)
	assert.Equal(t, 40+30+15, enterprise)

	personal := c.Score("PERSONAL", domain.TierNone, ComplexityLow)
	assert.Equal(t, 10+0+3, personal)

	// Score ranks descending: the more urgent demand must score higher.
	assert.Greater(t, enterprise, personal)

	// Unknown account types contribute nothing rather than failing.
	assert.Equal(t, 20+8, c.Score("MYSTERY", domain.TierGold, ComplexityMedium))
}

func TestComplexityOf(t *testing.T) {
	c := NewClassifier(testRules())

	assert.Equal(t, ComplexityHigh, c.ComplexityOf("billing_dispute"))
	assert.Equal(t, ComplexityLow, c.ComplexityOf("password_reset"))
	assert.Equal(t, ComplexityMedium, c.ComplexityOf("something_else"))
}

func TestNilRulesFallBackToDefaults(t *testing.T) {
	c := NewClassifier(nil)

	assert.Equal(t, domain.TierNone, c.Classify("anyone"))
	assert.NotZero(t, c.Score("ENTERPRISE", domain.TierGold, ComplexityHigh))
}
