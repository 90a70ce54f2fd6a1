package priority

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
)

// Complexity buckets an issue type for escalation scoring.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Rules holds the configurable classification and scoring tables.
type Rules struct {
	// Tier membership allow-lists keyed by client handle.
	DiamondClients []string `json:"diamond_clients"`
	GoldClients    []string `json:"gold_clients"`
	SilverClients  []string `json:"silver_clients"`

	// Escalation score components. Higher total = more urgent.
	AccountTypeWeights map[string]int           `json:"account_type_weights"`
	TierBonuses        map[domain.ClassTier]int `json:"tier_bonuses"`
	ComplexityFactors  map[Complexity]int       `json:"complexity_factors"`
	HighComplexity     []string                 `json:"high_complexity_issues"`
	LowComplexity      []string                 `json:"low_complexity_issues"`
}

// DefaultRules is the built-in fallback used when the configuration source
// cannot be reached. Classification must keep working in degraded mode.
func DefaultRules() *Rules {
	return &Rules{
		AccountTypeWeights: map[string]int{
			"ENTERPRISE": 40,
			"BUSINESS":   25,
			"PERSONAL":   10,
		},
		TierBonuses: map[domain.ClassTier]int{
			domain.TierDiamond: 30,
			domain.TierGold:    20,
			domain.TierSilver:  10,
			domain.TierNone:    0,
		},
		ComplexityFactors: map[Complexity]int{
			ComplexityHigh:   15,
			ComplexityMedium: 8,
			ComplexityLow:    3,
		},
		HighComplexity: []string{"billing_dispute", "account_takeover", "data_loss"},
		LowComplexity:  []string{"password_reset", "address_change", "general_question"},
	}
}

// LoadRules fetches the newest rules document from the store, falling back
// to the built-in defaults on any failure.
func LoadRules(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) *Rules {
	if pool == nil {
		return DefaultRules()
	}
	const query = `SELECT document FROM priority_rules ORDER BY created_at DESC LIMIT 1`
	var raw []byte
	if err := pool.QueryRow(ctx, query).Scan(&raw); err != nil {
		logger.Warn("priority rules unavailable, using built-in defaults", zap.Error(err))
		return DefaultRules()
	}
	rules := DefaultRules()
	if err := json.Unmarshal(raw, rules); err != nil {
		logger.Warn("priority rules malformed, using built-in defaults", zap.Error(err))
		return DefaultRules()
	}
	return rules
}
