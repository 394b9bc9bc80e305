// Package digestengine implements streaming multi-algorithm content hashing
// and the RFC 9530 Content-Digest structured-field wire format.
package digestengine

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"sort"
)

// Algorithm identifies a supported hash function by its RFC 9530 structured
// field key.
type Algorithm string

// Supported algorithms, in the order they must be serialized for
// determinism (dbtype.Meta depends on this order).
const (
	SHA224 Algorithm = "sha-224"
	SHA256 Algorithm = "sha-256"
	SHA384 Algorithm = "sha-384"
	SHA512 Algorithm = "sha-512"
)

// order fixes the canonical enum order used whenever a digest-set is
// serialized to a header or iterated deterministically.
var order = []Algorithm{SHA224, SHA256, SHA384, SHA512}

// Valid reports whether a is one of the four supported algorithms.
func (a Algorithm) Valid() bool {
	switch a {
	case SHA224, SHA256, SHA384, SHA512:
		return true
	}
	return false
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA224:
		return sha256.New224(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA384:
		return sha512.New384(), nil
	case SHA512:
		return sha512.New(), nil
	}
	return nil, fmt.Errorf("digestengine: unknown algorithm %q", a)
}

// Order returns the canonical enum order of all four algorithms.
func Order() []Algorithm {
	out := make([]Algorithm, len(order))
	copy(out, order)
	return out
}

// sortAlgorithms orders algs per the canonical enum order, ignoring any
// values not present in algs.
func sortAlgorithms(algs []Algorithm) []Algorithm {
	index := make(map[Algorithm]int, len(order))
	for i, a := range order {
		index[a] = i
	}
	out := make([]Algorithm, len(algs))
	copy(out, algs)
	sort.Slice(out, func(i, j int) bool { return index[out[i]] < index[out[j]] })
	return out
}
