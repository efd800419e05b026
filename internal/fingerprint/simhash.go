package fingerprint

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// Simhash64 computes a 64-bit locality-sensitive fingerprint of text: each
// token contributes its fnv64a hash to per-bit weights, and the majority sign
// of each bit position forms the result. Small edits to the text flip few
// bits, so near-identical articles land within a small Hamming distance.
//
// The value is returned as a signed int64 so it round-trips through the store
// unchanged. ok is false when the text has no tokens; callers must then skip
// the near-duplicate check entirely.
func Simhash64(text string) (int64, bool) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0, false
	}

	var bitWeights [64]int
	for _, token := range tokens {
		h := hashToken64(token)
		for bit := 0; bit < 64; bit++ {
			if h&(uint64(1)<<bit) != 0 {
				bitWeights[bit]++
			} else {
				bitWeights[bit]--
			}
		}
	}

	var result uint64
	for bit := 0; bit < 64; bit++ {
		if bitWeights[bit] > 0 {
			result |= uint64(1) << bit
		}
	}
	return int64(result), true
}

// HammingDistance counts the differing bits between two fingerprints.
func HammingDistance(a, b int64) int {
	return bits.OnesCount64(uint64(a) ^ uint64(b))
}

func tokenize(text string) []string {
	lowered := strings.ToLower(text)
	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func hashToken64(token string) uint64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(token))
	return hasher.Sum64()
}
