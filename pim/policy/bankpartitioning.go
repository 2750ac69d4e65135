package policy

import "github.com/optipim/kvbank-sim/pim"

// defaultReservedFraction mirrors the upstream layout's reserved-range
// sizing: one quarter of the bank space, never less than one bank.
const defaultReservedFraction = 4

// BankPartitioning reserves a contiguous range of banks [start, start+count)
// exclusively for KV cache traffic and round-robins within that range,
// leaving every other bank to static weight placement. Conflicts are
// zero as long as the upstream layout honors the reservation; a nonzero
// conflict count means the offline layout tool placed weights inside the
// reserved range.
type BankPartitioning struct {
	base
	start int
	count int
	next  int
}

// NewBankPartitioning constructs a BankPartitioning policy over the
// reserved range [start, start+count). Pass count <= 0 to fall back to
// numBanks/4 (clamped to at least 1) at Init time.
func NewBankPartitioning(start, count int) *BankPartitioning {
	return &BankPartitioning{start: start, count: count}
}

func (p *BankPartitioning) Init(numBanks int, staticWeights pim.StaticWeightMap) {
	p.init(numBanks, staticWeights)
	if p.count <= 0 {
		p.count = numBanks / defaultReservedFraction
	}
	if p.count < 1 {
		p.count = 1
	}
	if p.count > numBanks {
		p.count = numBanks
	}
	if p.start < 0 || p.start >= numBanks {
		p.start = 0
	}
	if p.start+p.count > numBanks {
		p.count = numBanks - p.start
	}
	p.next = 0
}

func (p *BankPartitioning) AllocateKVCacheBank(size int64, tokenID int64) pim.BankIndex {
	bank := pim.BankIndex((p.start + p.next) % p.numBanks)
	p.next = (p.next + 1) % p.count
	p.record(tokenID, bank)
	return bank
}
