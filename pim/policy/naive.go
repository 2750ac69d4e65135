package policy

import "github.com/optipim/kvbank-sim/pim"

// Naive places each new KV cache entry on the next bank in round-robin
// order, ignoring static weight placement entirely. It is the spec's
// baseline: conflicts proportional to the fraction of banks holding
// weights.
type Naive struct {
	base
	next int
}

// NewNaive constructs an unconfigured Naive policy; call Init before use.
func NewNaive() *Naive {
	return &Naive{}
}

func (p *Naive) Init(numBanks int, staticWeights pim.StaticWeightMap) {
	p.init(numBanks, staticWeights)
	p.next = 0
}

func (p *Naive) AllocateKVCacheBank(size int64, tokenID int64) pim.BankIndex {
	bank := pim.BankIndex(p.next)
	p.next = (p.next + 1) % p.numBanks
	p.record(tokenID, bank)
	return bank
}
