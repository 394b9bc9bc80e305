package digestengine

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Set is a non-empty mapping from hash algorithm to raw digest bytes. It is
// the wire/in-memory representation of a Content-Digest structured field
// value: "alg=:base64:,alg=:base64:" with algorithms lowercased.
type Set map[Algorithm][]byte

// Equal reports whether s and other agree on every algorithm present in
// both sets, and share at least one. Per the Digest Engine's verifier
// contract, algorithms present in one set but absent from the other are
// not compared; an empty intersection is not a match, since otherwise two
// sets with no algorithm in common would vacuously agree.
func (s Set) Equal(other Set) bool {
	shared := false
	for alg, want := range other {
		got, ok := s[alg]
		if !ok {
			continue
		}
		shared = true
		if len(got) != len(want) {
			return false
		}
		for i := range got {
			if got[i] != want[i] {
				return false
			}
		}
	}
	return shared
}

// Format serializes s as an RFC 9530 structured-field dictionary, with
// algorithms ordered per the canonical enum order for determinism.
func (s Set) Format() (string, error) {
	if len(s) == 0 {
		return "", fmt.Errorf("digestengine: empty digest set")
	}
	var present []Algorithm
	for alg := range s {
		present = append(present, alg)
	}
	present = sortAlgorithms(present)

	var b strings.Builder
	for i, alg := range present {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(string(alg))
		b.WriteString("=:")
		b.WriteString(base64.StdEncoding.EncodeToString(s[alg]))
		b.WriteString(":")
	}
	return b.String(), nil
}

// ParseSet parses an RFC 9530 Content-Digest structured-field value of the
// form "alg=:base64:,alg=:base64:". Keys are lowercased; an unknown
// algorithm or an empty digest-set is a parse error.
func ParseSet(header string) (Set, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, fmt.Errorf("digestengine: empty Content-Digest header")
	}

	out := make(Set)
	for _, member := range strings.Split(header, ",") {
		member = strings.TrimSpace(member)
		if member == "" {
			continue
		}
		eq := strings.IndexByte(member, '=')
		if eq < 0 {
			return nil, fmt.Errorf("digestengine: malformed Content-Digest member %q", member)
		}
		alg := Algorithm(strings.ToLower(strings.TrimSpace(member[:eq])))
		if !alg.Valid() {
			return nil, fmt.Errorf("digestengine: unknown algorithm %q", alg)
		}
		val := strings.TrimSpace(member[eq+1:])
		val = strings.TrimPrefix(val, ":")
		val = strings.TrimSuffix(val, ":")
		raw, err := base64.StdEncoding.DecodeString(val)
		if err != nil {
			return nil, fmt.Errorf("digestengine: invalid base64 for %s: %w", alg, err)
		}
		out[alg] = raw
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("digestengine: empty digest-set")
	}
	return out, nil
}
