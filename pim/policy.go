package pim

// PolicyStats is the named counter bag returned by a KVCachePolicy's
// get_stats(): how many tokens it has placed, how many of those
// placements landed on a bank the static weight map already claims, and
// how many distinct banks have received at least one KV allocation.
type PolicyStats struct {
	TotalAllocations int64
	TotalConflicts   int64
	BanksTouched     int
}

// PolicyOptions groups the per-policy configuration options recognized
// at selection time: BankPartitioning's reserved range, the
// ContentionAware/SmartLocality per-bank KV cap, and SmartLocality's
// locality weight and activity threshold. LocalityWeight and
// ActivityThresholdPercent are pointers so an explicitly-set zero (the
// locality_weight=0 scenario that should degenerate SmartLocality to
// ContentionAware's fallback rule) can be told apart from "not provided"
// (which falls back to the policy's own default). BankPartitioningStart,
// BankPartitioningCount and MaxKVPerBank don't need that distinction: a
// start of 0 is the default anyway, and a count or cap of 0 selects the
// policy's default.
type PolicyOptions struct {
	BankPartitioningStart    int
	BankPartitioningCount    int
	MaxKVPerBank             int
	LocalityWeight           *float64
	ActivityThresholdPercent *float64
}

// KVCachePolicy chooses which bank a newly generated KV cache entry lands
// on, for a given token, so as to minimize contention with the static
// weight placement it is initialized against. Every variant tracks its
// own token_id -> bank allocation table; callers must not call
// AllocateKVCacheBank twice for the same token id.
type KVCachePolicy interface {
	// Init is one-time setup: it captures the bank count and a copy of
	// the static weight map, and derives per-bank weight counts from it.
	// Calling any other method before Init is undefined.
	Init(numBanks int, staticWeights StaticWeightMap)

	// SetStaticWeightMapping replaces the static weight map in place,
	// without re-deriving any policy parameters (bank count, K_max,
	// locality weight, ...). Used when the real weight placement is only
	// discovered after kernel expansion (§4.5/§4.6).
	SetStaticWeightMapping(staticWeights StaticWeightMap)

	// AllocateKVCacheBank chooses a bank for tokenID's new KV cache entry
	// of the given size, records the assignment, updates per-bank and
	// aggregate statistics, and returns the chosen bank. size does not
	// influence placement; it is accepted for parity with the upstream
	// allocator interface this simulates.
	AllocateKVCacheBank(size int64, tokenID int64) BankIndex

	// GetKVCacheBank returns the bank tokenID was placed on, or -1 if
	// tokenID has never been allocated.
	GetKVCacheBank(tokenID int64) BankIndex

	// HasBankConflict is a pure function reporting whether bank carries
	// any static weight signature.
	HasBankConflict(bank BankIndex) bool

	// Stats returns the policy's accumulated allocation statistics.
	Stats() PolicyStats

	// ResetStats zeroes the accumulated counters without discarding
	// placement bookkeeping or per-bank occupancy state.
	ResetStats()
}

// NewKVCachePolicyFunc is set by pim/policy's init() to break the import
// cycle that would otherwise exist between this package (which needs to
// construct policies by name) and pim/policy (whose concrete types need
// StaticWeightMap and KVCachePolicy from here).
var NewKVCachePolicyFunc func(name string, opts PolicyOptions) KVCachePolicy

// NewKVCachePolicy constructs the named policy (one of Naive,
// BankPartitioning, ContentionAware, SmartLocality). Callers must
// blank-import pim/policy (or a package that does) before calling this.
func NewKVCachePolicy(name string, opts PolicyOptions) KVCachePolicy {
	if NewKVCachePolicyFunc == nil {
		panic("pim: NewKVCachePolicyFunc not registered; blank-import \"github.com/optipim/kvbank-sim/pim/policy\"")
	}
	return NewKVCachePolicyFunc(name, opts)
}
