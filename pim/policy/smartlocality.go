package policy

import "github.com/optipim/kvbank-sim/pim"

const (
	// defaultLocalityWeight balances the co-locality bonus against raw
	// weight/allocation pressure in the fallback score.
	defaultLocalityWeight = 0.3
	// defaultActivityThresholdPercent is accepted for API parity with
	// the per-policy configuration surface but does not move the
	// fixed 20-80 activity band the score formula uses.
	defaultActivityThresholdPercent = 10.0
	// activityBandLow and activityBandHigh bound the "moderately hot"
	// activity range that earns a bank the locality bonus: too cold and
	// a KV entry loses row-buffer reuse, too hot and it trades places
	// with the very traffic it's trying to avoid.
	activityBandLow  = 20.0
	activityBandHigh = 80.0
)

// SmartLocality extends ContentionAware's two-phase allocation rule with
// an activity-aware fallback score: among the zero-weight-first
// candidate set, it favors banks with fewer live KV allocations and
// fewer static weight signatures, with a locality bonus for banks whose
// weight activity falls in the moderately-hot [20,80] band (too cold
// loses row-buffer reuse, too hot trades one conflict for another). At
// LocalityWeight=0 the bonus vanishes; when at least one zero-weight bank
// exists the fallback then orders candidates by live allocation count
// alone, exactly as ContentionAware's does. When every bank carries
// weight, the 100*static_weight_count term still shapes the choice.
type SmartLocality struct {
	contentionBase
	localityWeight           float64
	activityThresholdPercent float64
}

// NewSmartLocality constructs a SmartLocality policy with the given
// locality weight, per-bank KV allocation cap, and activity threshold
// percent. Pass maxKVPerBank <= 0 to use defaultKMax (3).
func NewSmartLocality(localityWeight float64, maxKVPerBank int, activityThresholdPercent float64) *SmartLocality {
	return &SmartLocality{
		contentionBase:           contentionBase{kMax: maxKVPerBank},
		localityWeight:           localityWeight,
		activityThresholdPercent: activityThresholdPercent,
	}
}

func (p *SmartLocality) Init(numBanks int, staticWeights pim.StaticWeightMap) {
	p.initContention(numBanks, staticWeights, p.kMax)
}

func (p *SmartLocality) AllocateKVCacheBank(size int64, tokenID int64) pim.BankIndex {
	bank := p.allocate(p.score)
	p.record(tokenID, bank)
	return bank
}

// score implements §4.2's scoring formula: lower is better.
//
//	score(bank) = 100*static_weight_count[bank] + 10*dynamic_alloc_count[bank]
//	            - 50*locality_weight, if 20 <= activity[bank] <= 80
func (p *SmartLocality) score(bank pim.BankIndex) float64 {
	s := 100*float64(p.weightCount[bank]) + 10*float64(p.dynCount[bank])
	if activity := p.activity(bank); activity >= activityBandLow && activity <= activityBandHigh {
		s -= 50 * p.localityWeight
	}
	return s
}

// activity returns (static_weight_count[bank] * 100) / max_weight_count,
// or 0 if no bank carries any static weight.
func (p *SmartLocality) activity(bank pim.BankIndex) float64 {
	maxWeight := p.maxWeightCount()
	if maxWeight == 0 {
		return 0
	}
	return float64(p.weightCount[bank]) * 100.0 / float64(maxWeight)
}
