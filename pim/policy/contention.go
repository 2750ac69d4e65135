package policy

import "github.com/optipim/kvbank-sim/pim"

// defaultKMax bounds how many live KV allocations a zero-weight bank may
// hold before ContentionAware and SmartLocality stop preferring it.
const defaultKMax = 3

// contentionBase implements the two-phase allocation rule §4.2 specifies
// for both ContentionAware and SmartLocality:
//
//  1. scan every bank in round-robin order starting one past the last
//     placement; take the first bank with zero static weight and a
//     dynamic allocation count still under kMax.
//  2. failing that, restrict to the zero-weight banks if any exist
//     (otherwise every bank is a candidate) and take whichever scores
//     lowest, breaking ties toward the lowest bank index.
//
// ContentionAware's score is just the dynamic allocation count;
// SmartLocality's folds in the weight-activity bonus. Sharing this type
// is what makes SmartLocality's zero-locality-weight behavior collapse
// to ContentionAware's whenever a zero-weight bank exists; when every
// bank carries weight, SmartLocality's 100*weight term still applies.
type contentionBase struct {
	base
	kMax   int
	cursor int
}

func (p *contentionBase) initContention(numBanks int, staticWeights pim.StaticWeightMap, kMax int) {
	p.init(numBanks, staticWeights)
	if kMax <= 0 {
		kMax = defaultKMax
	}
	if kMax > numBanks {
		kMax = numBanks
	}
	p.kMax = kMax
	p.cursor = -1
}

// allocate runs the two-phase rule and returns the chosen bank. score is
// consulted only in the phase-2 fallback.
func (p *contentionBase) allocate(score func(bank pim.BankIndex) float64) pim.BankIndex {
	start := (p.cursor + 1) % p.numBanks
	for i := 0; i < p.numBanks; i++ {
		bank := pim.BankIndex((start + i) % p.numBanks)
		if p.weightCount[bank] == 0 && p.dynCount[bank] < int64(p.kMax) {
			p.cursor = int(bank)
			return bank
		}
	}

	candidates := p.zeroWeightBanks()
	if len(candidates) == 0 {
		candidates = p.allBanks()
	}
	best := candidates[0]
	bestScore := score(best)
	for _, bank := range candidates[1:] {
		if s := score(bank); s < bestScore {
			best, bestScore = bank, s
		}
	}
	p.cursor = int(best)
	return best
}

// zeroWeightBanks returns every bank with no static weight signatures,
// in ascending index order.
func (p *contentionBase) zeroWeightBanks() []pim.BankIndex {
	var banks []pim.BankIndex
	for b := 0; b < p.numBanks; b++ {
		if p.weightCount[b] == 0 {
			banks = append(banks, pim.BankIndex(b))
		}
	}
	return banks
}

func (p *contentionBase) allBanks() []pim.BankIndex {
	banks := make([]pim.BankIndex, p.numBanks)
	for b := range banks {
		banks[b] = pim.BankIndex(b)
	}
	return banks
}

// maxWeightCount returns the largest per-bank static weight count
// currently tracked, used to normalize SmartLocality's activity score.
func (p *contentionBase) maxWeightCount() int64 {
	var max int64
	for _, c := range p.weightCount {
		if c > max {
			max = c
		}
	}
	return max
}
