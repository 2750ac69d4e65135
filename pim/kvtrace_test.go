package pim

import "testing"

// fakePolicy is a minimal KVCachePolicy stub for exercising KVTraceGenerator
// in isolation, independent of any concrete policy variant.
type fakePolicy struct {
	placements map[int64]BankIndex
	nextBank   BankIndex
}

func newFakePolicy() *fakePolicy {
	return &fakePolicy{placements: make(map[int64]BankIndex)}
}

func (p *fakePolicy) Init(numBanks int, staticWeights StaticWeightMap)     {}
func (p *fakePolicy) SetStaticWeightMapping(staticWeights StaticWeightMap) {}

func (p *fakePolicy) AllocateKVCacheBank(size int64, tokenID int64) BankIndex {
	bank := p.nextBank
	p.nextBank++
	p.placements[tokenID] = bank
	return bank
}

func (p *fakePolicy) GetKVCacheBank(tokenID int64) BankIndex {
	if bank, ok := p.placements[tokenID]; ok {
		return bank
	}
	return -1
}

func (p *fakePolicy) HasBankConflict(bank BankIndex) bool { return false }
func (p *fakePolicy) Stats() PolicyStats                  { return PolicyStats{} }
func (p *fakePolicy) ResetStats()                         {}

func smallOrg() Organization {
	return NewOrganization([]LevelSpec{
		{Name: "bank", Count: 16},
		{Name: "row", Count: 1024},
		{Name: "col", Count: 128},
	})
}

func TestKVTraceGenerator_GenerateKVCacheWrite_RowCountMatchesCeilDiv(t *testing.T) {
	// GIVEN the default config (kv_data_size = 128*4096*2*4 bytes, row granule 8192)
	cfg := DefaultKVTraceGeneratorConfig()
	policy := newFakePolicy()
	gen := NewKVTraceGenerator(cfg, smallOrg(), policy)

	// WHEN a write is generated for token 0
	ops := gen.GenerateKVCacheWrite(0)

	// THEN the op count matches ceil(kv_data_size / row_granule) exactly
	wantOps := (cfg.KVDataSize() + cfg.RowGranuleBytes - 1) / cfg.RowGranuleBytes
	if int64(len(ops)) != wantOps {
		t.Errorf("got %d write ops, want %d", len(ops), wantOps)
	}
	for _, op := range ops {
		if op.Op != OpWrite {
			t.Errorf("op.Op = %q, want write", op.Op)
		}
	}
}

func TestKVTraceGenerator_GenerateKVCacheRead_RowCountUsesBlockSizeNotKVDataSize(t *testing.T) {
	// GIVEN the default config, where block_size (4096) and kv_data_size
	// (128*4096*2*4 = 4MiB) are deliberately distinct (§4.3: reads replay
	// block_size bytes, writes materialize kv_data_size bytes)
	cfg := DefaultKVTraceGeneratorConfig()
	policy := newFakePolicy()
	gen := NewKVTraceGenerator(cfg, smallOrg(), policy)
	gen.GenerateKVCacheWrite(0)

	// WHEN a read is generated for that token
	ops := gen.GenerateKVCacheRead(0)

	// THEN the op count matches ceil(block_size / row_granule), not
	// ceil(kv_data_size / row_granule)
	wantOps := (cfg.BlockSize + cfg.RowGranuleBytes - 1) / cfg.RowGranuleBytes
	if int64(len(ops)) != wantOps {
		t.Errorf("got %d read ops, want %d (ceil(block_size/row_granule))", len(ops), wantOps)
	}
	if wantOps == cfg.KVDataSize()/cfg.RowGranuleBytes {
		t.Fatal("test is not actually distinguishing block_size from kv_data_size")
	}
	for _, op := range ops {
		if op.Op != OpRead {
			t.Errorf("op.Op = %q, want read", op.Op)
		}
	}
}

func TestKVTraceGenerator_GenerateKVCacheRead_UnallocatedToken_EmitsNothing(t *testing.T) {
	// GIVEN a policy with no record of the requested token
	cfg := DefaultKVTraceGeneratorConfig()
	policy := newFakePolicy()
	gen := NewKVTraceGenerator(cfg, smallOrg(), policy)

	// WHEN a read is requested for a token that was never written
	ops := gen.GenerateKVCacheRead(42)

	// THEN no operations are emitted
	if len(ops) != 0 {
		t.Errorf("got %d ops, want 0 for an unallocated token", len(ops))
	}
}

func TestKVTraceGenerator_GenerateInferenceStep_ReadsAllPriorTokensBeforeWrite(t *testing.T) {
	// GIVEN tokens 0 and 1 already allocated
	cfg := DefaultKVTraceGeneratorConfig()
	policy := newFakePolicy()
	gen := NewKVTraceGenerator(cfg, smallOrg(), policy)
	gen.GenerateKVCacheWrite(0)
	gen.GenerateKVCacheWrite(1)

	// WHEN the inference step for token 2 is generated
	ops := gen.GenerateInferenceStep(2)

	// THEN reads for tokens 0 and 1 (in that order) precede the writes for
	// the newly allocated token 2, matching §5's ordering guarantee
	readsPerToken := (cfg.BlockSize + cfg.RowGranuleBytes - 1) / cfg.RowGranuleBytes
	wantReads := 2 * readsPerToken
	var firstWriteIdx = -1
	for i, op := range ops {
		if op.Op == OpWrite {
			firstWriteIdx = i
			break
		}
	}
	if firstWriteIdx < 0 {
		t.Fatal("no write op found in inference step")
	}
	if int64(firstWriteIdx) != wantReads {
		t.Errorf("first write at index %d, want %d (all prior-token reads first)", firstWriteIdx, wantReads)
	}
}
