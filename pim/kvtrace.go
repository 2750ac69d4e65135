package pim

import "github.com/optipim/kvbank-sim/internal/util"

// KVTraceGenerator turns per-token KV cache activity into concrete
// Operations against a placement policy, reading the history of prior
// tokens before writing the current one. It owns no allocation table of
// its own — it trusts the policy.
type KVTraceGenerator struct {
	cfg    KVTraceGeneratorConfig
	org    Organization
	policy KVCachePolicy
}

// NewKVTraceGenerator builds a generator over org's bank hierarchy, using
// policy for placement decisions.
func NewKVTraceGenerator(cfg KVTraceGeneratorConfig, org Organization, policy KVCachePolicy) *KVTraceGenerator {
	return &KVTraceGenerator{cfg: cfg, org: org, policy: policy}
}

// bankIDToAddr decomposes a bank into a full address vector over org,
// then fills in row/column coordinates from a synthetic byte offset so
// repeated accesses to the same bank still vary across rows.
func (g *KVTraceGenerator) bankIDToAddr(bank BankIndex, byteOffset int64) AddressVector {
	vec := Decompose(bank, g.org)
	rowIdx := g.org.LevelIndex("row")
	colIdx := g.org.LevelIndex("col")
	if rowIdx >= 0 && rowIdx < len(vec) {
		granule := g.cfg.RowGranuleBytes
		if granule <= 0 {
			granule = 1
		}
		row := byteOffset / granule
		if rowIdx < len(g.org.Count) && g.org.Count[rowIdx] > 0 {
			row %= g.org.Count[rowIdx]
		}
		vec[rowIdx] = row
	}
	if colIdx >= 0 && colIdx < len(vec) {
		vec[colIdx] = 0
	}
	return vec
}

// GenerateKVCacheWrite allocates a bank for tokenID's new KV entry and
// emits the writes that materialize it: ceil(kv_data_size / row_granule)
// operations, one per row granule, all against the chosen bank.
func (g *KVTraceGenerator) GenerateKVCacheWrite(tokenID int64) []Operation {
	size := g.cfg.KVDataSize()
	bank := g.policy.AllocateKVCacheBank(size, tokenID)
	numWrites := util.CeilDiv(size, g.cfg.RowGranuleBytes)
	ops := make([]Operation, 0, numWrites)
	for i := int64(0); i < numWrites; i++ {
		ops = append(ops, Operation{Op: OpWrite, Addr: g.bankIDToAddr(bank, i*g.cfg.RowGranuleBytes)})
	}
	return ops
}

// GenerateKVCacheRead emits the reads attention performs against a
// previously written token's entry: ceil(block_size / row_granule)
// operations against whatever bank that token was placed on. block_size
// is the generator's configured BlockSize, distinct from the write
// phase's kv_data_size. If the policy has no record of tokenID (it was
// never written), no operations are emitted.
func (g *KVTraceGenerator) GenerateKVCacheRead(tokenID int64) []Operation {
	bank := g.policy.GetKVCacheBank(tokenID)
	if bank < 0 {
		return nil
	}
	numReads := util.CeilDiv(g.cfg.BlockSize, g.cfg.RowGranuleBytes)
	ops := make([]Operation, 0, numReads)
	for i := int64(0); i < numReads; i++ {
		ops = append(ops, Operation{Op: OpRead, Addr: g.bankIDToAddr(bank, i*g.cfg.RowGranuleBytes)})
	}
	return ops
}

// GenerateInferenceStep produces the full op stream for decoding token
// currentTokenID: a read of every prior token's entry (0..currentTokenID-1),
// followed by the write that allocates and materializes the new entry.
func (g *KVTraceGenerator) GenerateInferenceStep(currentTokenID int64) []Operation {
	var ops []Operation
	for prior := int64(0); prior < currentTokenID; prior++ {
		ops = append(ops, g.GenerateKVCacheRead(prior)...)
	}
	ops = append(ops, g.GenerateKVCacheWrite(currentTokenID)...)
	return ops
}
