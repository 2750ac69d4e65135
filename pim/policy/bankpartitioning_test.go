package policy

import "testing"

func TestBankPartitioning_ReservedRangeHonored_NoConflicts(t *testing.T) {
	// GIVEN 16 banks, weight map covering 0..11, reserved range [12, 16)
	// (spec §8 scenario 2)
	p := NewBankPartitioning(12, 4)
	p.Init(16, weightMapOver(bankRange(0, 12)...))

	// WHEN 512 tokens are allocated
	for i := int64(0); i < 512; i++ {
		p.AllocateKVCacheBank(0, i)
	}

	// THEN every allocation lands in the reserved range, so conflicts = 0,
	// and token 4 lands on bank 12 (first of the reserved range)
	stats := p.Stats()
	if stats.TotalAllocations != 512 {
		t.Errorf("TotalAllocations = %d, want 512", stats.TotalAllocations)
	}
	if stats.TotalConflicts != 0 {
		t.Errorf("TotalConflicts = %d, want 0", stats.TotalConflicts)
	}
	if got := p.GetKVCacheBank(4); got != 12 {
		t.Errorf("token 4 -> bank %d, want 12", got)
	}
	for i := int64(0); i < 512; i++ {
		bank := p.GetKVCacheBank(i)
		if bank < 12 || bank >= 16 {
			t.Fatalf("token %d -> bank %d, outside reserved range [12,16)", i, bank)
		}
	}
}

func TestBankPartitioning_WeightsInsideReservedRange_StillFlagged(t *testing.T) {
	// GIVEN a misconfigured layout where weights spill into the reserved range
	p := NewBankPartitioning(12, 4)
	p.Init(16, weightMapOver(13)) // bank 13 is inside [12, 16)

	// WHEN a token happens to land on bank 13
	p.AllocateKVCacheBank(0, 0) // bank 12
	p.AllocateKVCacheBank(0, 1) // bank 13

	// THEN the policy still reports the conflict — this is how downstream
	// tests detect mis-configuration of the upstream layout tool (§4.2)
	if stats := p.Stats(); stats.TotalConflicts != 1 {
		t.Errorf("TotalConflicts = %d, want 1", stats.TotalConflicts)
	}
}

func TestBankPartitioning_DefaultsToQuarterOfBankSpace(t *testing.T) {
	// GIVEN count <= 0 (unset)
	p := NewBankPartitioning(0, 0)
	p.Init(16, nil)

	// WHEN allocating more tokens than a naive assumption of count=1 would allow
	for i := int64(0); i < 8; i++ {
		p.AllocateKVCacheBank(0, i)
	}

	// THEN allocations cycle within banks [0, 4) (16/4 = 4), never reaching bank 4
	for i := int64(0); i < 8; i++ {
		if bank := p.GetKVCacheBank(i); bank >= 4 {
			t.Errorf("token %d -> bank %d, want within [0,4)", i, bank)
		}
	}
}

func TestBankPartitioning_ClampsCountWhenStartPlusCountOverflows(t *testing.T) {
	// GIVEN start=14, count=4, N=16: start+count=18 overflows the bank
	// space, so an un-clamped round-robin would wrap past bank 15 back to
	// banks 0 and 1, violating the reserved-range invariant (§3)
	p := NewBankPartitioning(14, 4)
	p.Init(16, nil)

	// WHEN more tokens than the valid remainder (16-14=2) are allocated
	for i := int64(0); i < 8; i++ {
		p.AllocateKVCacheBank(0, i)
	}

	// THEN every allocation stays within [14, 16), never wrapping onto
	// banks 0 or 1
	for i := int64(0); i < 8; i++ {
		bank := p.GetKVCacheBank(i)
		if bank < 14 || bank >= 16 {
			t.Errorf("token %d -> bank %d, outside clamped reserved range [14,16)", i, bank)
		}
	}
}

func TestBankPartitioning_ClampsOutOfRangeStartAndCount(t *testing.T) {
	// GIVEN a start beyond the bank space and a count far larger than it
	p := NewBankPartitioning(100, 1000)
	p.Init(8, nil)

	// WHEN a token is allocated
	p.AllocateKVCacheBank(0, 0)

	// THEN the clamp keeps the reservation inside [0, numBanks)
	bank := p.GetKVCacheBank(0)
	if bank < 0 || bank >= 8 {
		t.Errorf("bank %d outside [0, 8) after clamping an out-of-range start/count", bank)
	}
}
