// Package pim implements the KV-cache-aware processing-in-memory (PIM)
// simulation core: the bank index space, static weight loading, the KV
// cache placement policies, the interleaved trace generator, the
// bank-conflict accountant, and the trace-expanding frontend that drives
// them against an external DRAM back-end and kernel code generator.
package pim

import "fmt"

// BankIndex identifies one bank in the flat [0, N) bank space.
type BankIndex int

// AddressVector is an ordered tuple of hierarchy coordinates, one per DRAM
// level (e.g. channel, rank, bankgroup, bank, row, column). Index into it
// using Organization.LevelIndex.
type AddressVector []int64

// Organization describes the DRAM hierarchy's mixed-radix layout: the
// per-level cardinality (Count) and a name-to-level-index lookup
// (LevelIndex), mirroring the organization descriptor the DRAM back-end
// exposes.
type Organization struct {
	Count      []int64        // per-level cardinality, outermost first
	levelNames map[string]int // name -> index into Count/AddressVector
}

// NewOrganization builds an Organization from an ordered list of
// (name, count) levels. Levels are ordered outermost (channel) to
// innermost (column), matching AddressVector's slot order.
func NewOrganization(levels []LevelSpec) Organization {
	org := Organization{
		Count:      make([]int64, len(levels)),
		levelNames: make(map[string]int, len(levels)),
	}
	for i, lvl := range levels {
		org.Count[i] = lvl.Count
		org.levelNames[lvl.Name] = i
	}
	return org
}

// LevelSpec names one hierarchy level and its cardinality.
type LevelSpec struct {
	Name  string
	Count int64
}

// LevelIndex returns the AddressVector slot for a named level, or -1 if the
// level is not present in this organization.
func (o Organization) LevelIndex(name string) int {
	if idx, ok := o.levelNames[name]; ok {
		return idx
	}
	return -1
}

// NumLevels returns the number of hierarchy levels.
func (o Organization) NumLevels() int { return len(o.Count) }

// BankLevelIndex returns the slot index of the "bank" level, the
// last level that participates in the bank-index projection (everything
// from this level outward — channel, rank, bankgroup, bank — contributes
// to BankIndex; row/column do not).
func (o Organization) BankLevelIndex() int { return o.LevelIndex("bank") }

// TotalBanks returns N = product of Count[0..bankLevel], the size of the
// flat bank index space (channels x ranks x bankgroups x banks-per-bankgroup).
func (o Organization) TotalBanks() int64 {
	bankLevel := o.BankLevelIndex()
	if bankLevel < 0 {
		return 0
	}
	n := int64(1)
	for i := 0; i <= bankLevel; i++ {
		n *= o.Count[i]
	}
	return n
}

// Project collapses the hierarchy coordinates up through the bank level
// into a single global BankIndex, using mixed-radix encoding (outermost
// level is most significant).
func Project(vec AddressVector, org Organization) BankIndex {
	bankLevel := org.BankLevelIndex()
	if bankLevel < 0 || bankLevel >= len(vec) {
		return -1
	}
	var idx int64
	for j := 0; j <= bankLevel; j++ {
		idx = idx*org.Count[j] + vec[j]
	}
	return BankIndex(idx)
}

// Decompose reverses Project: given a global bank index, it recovers the
// per-level coordinates through the bank level by repeatedly taking the
// mixed-radix remainder, innermost level first: level j gets
// bank_id mod count[j], then bank_id /= count[j].
// Row and column slots (beyond the bank level) are left at zero; callers
// that need row/column set them explicitly.
func Decompose(bank BankIndex, org Organization) AddressVector {
	bankLevel := org.BankLevelIndex()
	if bankLevel < 0 {
		return nil
	}
	vec := make(AddressVector, org.NumLevels())
	id := int64(bank)
	for j := bankLevel; j >= 0; j-- {
		vec[j] = id % org.Count[j]
		id /= org.Count[j]
	}
	return vec
}

// Validate returns a *BoundsError if bank falls outside [0, N); callers
// skip the offending operation and continue rather than treating this as
// fatal (§7: BoundsError is always recoverable).
func (o Organization) Validate(bank BankIndex) error {
	n := o.TotalBanks()
	if bank < 0 || int64(bank) >= n {
		return &BoundsError{Detail: fmt.Sprintf("bank %d out of range [0, %d)", bank, n)}
	}
	return nil
}
