package pim

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// StaticWeightMap maps a bank to the set of weight address signatures
// placed there by the upstream layout optimizer.
type StaticWeightMap map[BankIndex]map[uint64]struct{}

// Count returns the number of weight signatures recorded for bank.
func (m StaticWeightMap) Count(bank BankIndex) int {
	return len(m[bank])
}

// HasWeights reports whether bank carries any recorded weight signature.
func (m StaticWeightMap) HasWeights(bank BankIndex) bool {
	return m.Count(bank) > 0
}

// insert records signature for bank, allocating the per-bank set lazily.
func (m StaticWeightMap) insert(bank BankIndex, signature uint64) {
	set, ok := m[bank]
	if !ok {
		set = make(map[uint64]struct{})
		m[bank] = set
	}
	set[signature] = struct{}{}
}

// LoadStaticWeightMap parses the upstream layout trace at path into a
// StaticWeightMap. Lines beginning with "R" or "W" carry a comma-separated
// address tuple; the bank coordinate is read from field index 1 of that
// tuple (the simple-trace convention: [bank, ...]). Callers targeting the
// full HBM hierarchy ([chan, rank, bankgroup, bank, row, col]) should use
// LoadStaticWeightMapAt with bankField=3 instead.
// Malformed lines and unrecognized opcodes are skipped silently. If the
// file cannot be opened, an empty map is returned — not an error; this
// means "no prior knowledge" and callers fall back to the heuristic
// derived from kernel-expansion writes.
func LoadStaticWeightMap(path string, numBanks int) StaticWeightMap {
	return LoadStaticWeightMapAt(path, numBanks, 1)
}

// LoadStaticWeightMapAt is LoadStaticWeightMap with an explicit bank-field
// index within the comma-separated address tuple (1 for the simple-trace
// convention, 3 for full HBM hierarchy: [chan, rank, bankgroup, bank, row, col]).
func LoadStaticWeightMapAt(path string, numBanks, bankField int) StaticWeightMap {
	weightMap := make(StaticWeightMap)

	f, err := os.Open(path)
	if err != nil {
		logrus.Warnf("[StaticWeightLoader] could not open trace file %q: %v (falling back to no prior knowledge)", path, err)
		return weightMap
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if fields[0] != "R" && fields[0] != "W" {
			continue
		}
		addrFields := strings.Split(fields[1], ",")
		if len(addrFields) <= bankField {
			continue
		}
		bankID, err := strconv.Atoi(strings.TrimSpace(addrFields[bankField]))
		if err != nil {
			continue
		}
		if bankID < 0 || bankID >= numBanks {
			continue
		}
		var signature uint64
		if len(addrFields) > 4 {
			sig, err := strconv.ParseUint(strings.TrimSpace(addrFields[4]), 10, 64)
			if err == nil {
				signature = sig
			}
		}
		weightMap.insert(BankIndex(bankID), signature)
	}
	if err := scanner.Err(); err != nil {
		logrus.Warnf("[StaticWeightLoader] error reading trace file %q: %v", path, err)
	}

	return weightMap
}
