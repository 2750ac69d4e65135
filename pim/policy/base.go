// Package policy provides the concrete KVCachePolicy implementations:
// Naive round-robin, reserved-range BankPartitioning, K_max-capped
// ContentionAware, and activity-scored SmartLocality. Importing this
// package registers all four names with pim.NewKVCachePolicy.
package policy

import (
	"github.com/optipim/kvbank-sim/pim"
)

// base holds the bank-occupancy bookkeeping every policy shares: the
// live token_id -> bank placement table, per-bank static weight and
// dynamic allocation counts (the BankOccupancy data entity), and
// accumulated stats. Concrete policies embed it and implement only
// Init/AllocateKVCacheBank, calling down into b.init/b.record.
type base struct {
	numBanks      int
	staticWeights pim.StaticWeightMap
	weightCount   []int64 // per-bank static weight signature count
	dynCount      []int64 // per-bank live KV allocation count
	placements    map[int64]pim.BankIndex
	touchedBanks  map[pim.BankIndex]struct{}
	stats         pim.PolicyStats
}

func (b *base) init(numBanks int, staticWeights pim.StaticWeightMap) {
	b.numBanks = numBanks
	b.dynCount = make([]int64, numBanks)
	b.placements = make(map[int64]pim.BankIndex)
	b.touchedBanks = make(map[pim.BankIndex]struct{})
	b.stats = pim.PolicyStats{}
	b.setWeights(staticWeights)
}

func (b *base) setWeights(staticWeights pim.StaticWeightMap) {
	if staticWeights == nil {
		staticWeights = make(pim.StaticWeightMap)
	}
	b.staticWeights = staticWeights
	b.weightCount = make([]int64, b.numBanks)
	for bank, signatures := range staticWeights {
		if int(bank) >= 0 && int(bank) < b.numBanks {
			b.weightCount[bank] = int64(len(signatures))
		}
	}
}

func (b *base) SetStaticWeightMapping(staticWeights pim.StaticWeightMap) {
	b.setWeights(staticWeights)
}

// record books tokenID's placement on bank: updates the placement table,
// the per-bank dynamic count, the touched-bank set, and bumps the
// allocation/conflict counters.
func (b *base) record(tokenID int64, bank pim.BankIndex) {
	b.placements[tokenID] = bank
	b.touchedBanks[bank] = struct{}{}
	b.dynCount[bank]++
	b.stats.TotalAllocations++
	b.stats.BanksTouched = len(b.touchedBanks)
	if b.HasBankConflict(bank) {
		b.stats.TotalConflicts++
	}
}

func (b *base) GetKVCacheBank(tokenID int64) pim.BankIndex {
	if bank, ok := b.placements[tokenID]; ok {
		return bank
	}
	return -1
}

func (b *base) HasBankConflict(bank pim.BankIndex) bool {
	if int(bank) < 0 || int(bank) >= b.numBanks {
		return false
	}
	return b.weightCount[bank] > 0
}

func (b *base) Stats() pim.PolicyStats {
	return b.stats
}

func (b *base) ResetStats() {
	b.stats = pim.PolicyStats{BanksTouched: len(b.touchedBanks)}
}
