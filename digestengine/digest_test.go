package digestengine

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetFormatParseRoundTrip(t *testing.T) {
	r, err := NewReader(bytes.NewReader([]byte("hello")), []Algorithm{SHA256, SHA512})
	require.NoError(t, err)
	_, err = io.Copy(io.Discard, r)
	require.NoError(t, err)

	set := r.Digests()
	header, err := set.Format()
	require.NoError(t, err)

	parsed, err := ParseSet(header)
	require.NoError(t, err)
	require.True(t, set.Equal(parsed))
	require.True(t, parsed.Equal(set))
}

func TestParseSetRejectsUnknownAlgorithm(t *testing.T) {
	_, err := ParseSet("sha-1=:aGVsbG8=:")
	require.Error(t, err)
}

func TestParseSetRejectsEmpty(t *testing.T) {
	_, err := ParseSet("")
	require.Error(t, err)
}

func TestVerifierAcceptsMatchingDigest(t *testing.T) {
	body := []byte("hello")
	w, err := NewWriter(io.Discard, []Algorithm{SHA256})
	require.NoError(t, err)
	_, err = w.Write(body)
	require.NoError(t, err)
	expected := w.Digests()

	v, err := NewVerifier(bytes.NewReader(body), expected)
	require.NoError(t, err)
	_, err = io.Copy(io.Discard, v)
	require.NoError(t, err)
}

func TestVerifierRejectsMismatchedDigest(t *testing.T) {
	w, err := NewWriter(io.Discard, []Algorithm{SHA256})
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	expected := w.Digests()

	v, err := NewVerifier(bytes.NewReader([]byte("world")), expected)
	require.NoError(t, err)
	_, err = io.Copy(io.Discard, v)
	require.Error(t, err)
	var mismatch *ErrDigestMismatch
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, SHA256, mismatch.Algorithm)
}

func TestVerifierIgnoresAlgorithmsAbsentFromExpected(t *testing.T) {
	body := []byte("hello")
	w, err := NewWriter(io.Discard, []Algorithm{SHA256})
	require.NoError(t, err)
	_, err = w.Write(body)
	require.NoError(t, err)
	expected := w.Digests() // only sha-256

	v, err := NewVerifier(bytes.NewReader(body), expected)
	require.NoError(t, err)
	_, err = io.Copy(io.Discard, v)
	require.NoError(t, err)
}
