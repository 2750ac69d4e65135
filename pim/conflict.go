package pim

// ConflictKind names the direction of a detected weight/KV collision.
type ConflictKind string

const (
	ConflictWeightThenKV ConflictKind = "weight_kv"
	ConflictKVThenWeight ConflictKind = "kv_weight"
)

// ConflictEvent records a single detected bank collision between a weight
// operation and a KV cache operation targeting the same bank.
type ConflictEvent struct {
	Bank  BankIndex
	Cycle int64
	Kind  ConflictKind
}

// ConflictStats summarizes accumulated conflict activity. WeightBlockedByKV
// and KVBlockedByWeight are the directional breakdown of TotalConflicts:
// the former counts weight operations that landed on a bank already
// carrying KV traffic, the latter the reverse.
type ConflictStats struct {
	TotalWeightOps    int64
	TotalKVOps        int64
	TotalConflicts    int64
	WeightBlockedByKV int64
	KVBlockedByWeight int64
	Events            []ConflictEvent
}

// BankConflictTracker accounts for overlapping weight and KV cache activity
// on the same bank. Per bank it keeps two address-signature sets (one per
// traffic class); registering an operation checks the other class's set
// for the same bank before inserting into its own. Completing an operation
// removes it from the active vector only — the usage set itself is never
// cleared, so a bank that was ever touched by weight traffic keeps
// flagging conflicts against later KV traffic for the lifetime of the run.
type BankConflictTracker struct {
	weightUsage  map[BankIndex]map[uint64]struct{}
	kvUsage      map[BankIndex]map[uint64]struct{}
	weightActive map[BankIndex][]uint64
	kvActive     map[BankIndex][]uint64

	stats ConflictStats
}

// NewBankConflictTracker creates an empty tracker.
func NewBankConflictTracker() *BankConflictTracker {
	return &BankConflictTracker{
		weightUsage:  make(map[BankIndex]map[uint64]struct{}),
		kvUsage:      make(map[BankIndex]map[uint64]struct{}),
		weightActive: make(map[BankIndex][]uint64),
		kvActive:     make(map[BankIndex][]uint64),
	}
}

// RegisterWeightOperation records a weight access to bank at the given
// cycle and signature, flagging a conflict if kv traffic already occupies
// this bank.
func (t *BankConflictTracker) RegisterWeightOperation(bank BankIndex, cycle int64, signature uint64) {
	t.stats.TotalWeightOps++
	if _, occupied := t.kvUsage[bank]; occupied && len(t.kvUsage[bank]) > 0 {
		t.recordConflict(bank, cycle, ConflictKVThenWeight)
	}
	t.insert(t.weightUsage, bank, signature)
	t.weightActive[bank] = append(t.weightActive[bank], signature)
}

// RegisterKVOperation records a KV cache access to bank at the given
// cycle and signature, flagging a conflict if weight traffic already
// occupies this bank.
func (t *BankConflictTracker) RegisterKVOperation(bank BankIndex, cycle int64, signature uint64) {
	t.stats.TotalKVOps++
	if _, occupied := t.weightUsage[bank]; occupied && len(t.weightUsage[bank]) > 0 {
		t.recordConflict(bank, cycle, ConflictWeightThenKV)
	}
	t.insert(t.kvUsage, bank, signature)
	t.kvActive[bank] = append(t.kvActive[bank], signature)
}

func (t *BankConflictTracker) recordConflict(bank BankIndex, cycle int64, kind ConflictKind) {
	t.stats.TotalConflicts++
	switch kind {
	case ConflictWeightThenKV:
		// weight traffic was already active on this bank; the KV op is blocked by it.
		t.stats.KVBlockedByWeight++
	case ConflictKVThenWeight:
		// KV traffic was already active on this bank; the weight op is blocked by it.
		t.stats.WeightBlockedByKV++
	}
	t.stats.Events = append(t.stats.Events, ConflictEvent{Bank: bank, Cycle: cycle, Kind: kind})
}

func (t *BankConflictTracker) insert(usage map[BankIndex]map[uint64]struct{}, bank BankIndex, signature uint64) {
	set, ok := usage[bank]
	if !ok {
		set = make(map[uint64]struct{})
		usage[bank] = set
	}
	set[signature] = struct{}{}
}

// CompleteWeightOperation removes signature from the active weight vector
// for bank. The usage set is left untouched — it keeps flagging conflicts
// for the rest of the run.
func (t *BankConflictTracker) CompleteWeightOperation(bank BankIndex, signature uint64) {
	t.weightActive[bank] = removeFirst(t.weightActive[bank], signature)
}

// CompleteKVOperation removes signature from the active KV vector for
// bank. The usage set is left untouched.
func (t *BankConflictTracker) CompleteKVOperation(bank BankIndex, signature uint64) {
	t.kvActive[bank] = removeFirst(t.kvActive[bank], signature)
}

func removeFirst(s []uint64, v uint64) []uint64 {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// HasPotentialConflict reports whether bank has ever carried both weight
// and KV traffic.
func (t *BankConflictTracker) HasPotentialConflict(bank BankIndex) bool {
	return len(t.weightUsage[bank]) > 0 && len(t.kvUsage[bank]) > 0
}

// Stats returns a copy of the accumulated conflict statistics.
func (t *BankConflictTracker) Stats() ConflictStats {
	events := make([]ConflictEvent, len(t.stats.Events))
	copy(events, t.stats.Events)
	return ConflictStats{
		TotalWeightOps:    t.stats.TotalWeightOps,
		TotalKVOps:        t.stats.TotalKVOps,
		TotalConflicts:    t.stats.TotalConflicts,
		WeightBlockedByKV: t.stats.WeightBlockedByKV,
		KVBlockedByWeight: t.stats.KVBlockedByWeight,
		Events:            events,
	}
}

// Reset clears all accumulated statistics and usage history, leaving the
// tracker as if newly constructed.
func (t *BankConflictTracker) Reset() {
	t.weightUsage = make(map[BankIndex]map[uint64]struct{})
	t.kvUsage = make(map[BankIndex]map[uint64]struct{})
	t.weightActive = make(map[BankIndex][]uint64)
	t.kvActive = make(map[BankIndex][]uint64)
	t.stats = ConflictStats{}
}
