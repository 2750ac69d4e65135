package policy

import "github.com/optipim/kvbank-sim/pim"

// ContentionAware prefers a zero-weight bank that has not yet hit its
// K_max cap, scanned round-robin from one past the last placement.
// Without the cap this collapses to funneling every allocation onto a
// single coldest bank and starves parallelism, so once every zero-weight
// bank is at the cap, allocation falls back to whichever zero-weight
// bank (or, if none exist, whichever bank at all) carries the fewest
// live KV allocations.
type ContentionAware struct {
	contentionBase
}

// NewContentionAware constructs a ContentionAware policy with the given
// per-bank KV allocation cap. Pass kMax <= 0 to use defaultKMax (3).
func NewContentionAware(kMax int) *ContentionAware {
	return &ContentionAware{contentionBase: contentionBase{kMax: kMax}}
}

func (p *ContentionAware) Init(numBanks int, staticWeights pim.StaticWeightMap) {
	p.initContention(numBanks, staticWeights, p.kMax)
}

func (p *ContentionAware) AllocateKVCacheBank(size int64, tokenID int64) pim.BankIndex {
	bank := p.allocate(func(b pim.BankIndex) float64 { return float64(p.dynCount[b]) })
	p.record(tokenID, bank)
	return bank
}
