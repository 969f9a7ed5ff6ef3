// risk.go implements the inline risk checks StrategyEngine applies before
// firing an order. Unlike a shared-service risk manager guarded by a mutex,
// this one is only ever touched from the single goroutine that runs
// StrategyEngine.Run, so no locking is needed.
package strategy

// RiskManager tracks per-market and account-wide notional exposure and
// decides whether a prospective order may be admitted.
type RiskManager struct {
	maxPositionUSDC    float64
	maxAccountRiskUSDC float64

	positions     map[string]float64 // market_id -> signed net exposure, USDC
	totalExposure float64            // signed sum of positions, i.e. current net account exposure
}

// NewRiskManager creates a RiskManager with the given per-market and
// account-wide caps.
func NewRiskManager(maxPositionUSDC, maxAccountRiskUSDC float64) *RiskManager {
	return &RiskManager{
		maxPositionUSDC:    maxPositionUSDC,
		maxAccountRiskUSDC: maxAccountRiskUSDC,
		positions:          make(map[string]float64),
	}
}

// Admit reports whether adding notionalUSDC of exposure to marketID would
// stay within both the per-market and account-wide caps. It does not mutate
// state — callers must call Commit after the order is actually fired.
func (r *RiskManager) Admit(marketID string, notionalUSDC float64) bool {
	projectedMarket := absFloat(r.positions[marketID]) + absFloat(notionalUSDC)
	if projectedMarket > r.maxPositionUSDC {
		return false
	}
	if absFloat(r.totalExposure+notionalUSDC) > r.maxAccountRiskUSDC {
		return false
	}
	return true
}

// Commit records notionalUSDC of exposure against marketID after an order
// for it has been fired.
func (r *RiskManager) Commit(marketID string, notionalUSDC float64) {
	r.positions[marketID] += notionalUSDC
	r.totalExposure += notionalUSDC
}

// ExposureFor returns the currently tracked net exposure for marketID.
func (r *RiskManager) ExposureFor(marketID string) float64 {
	return r.positions[marketID]
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
