package proofcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/surgeon/internal/canon"
	"github.com/gnoswap-labs/surgeon/internal/sexpr"
)

func certificateFor(t *testing.T, src, transformed string) (canon.Soul, Certificate) {
	t.Helper()
	soul := canon.SoulOf(sexpr.MustParseTerm(src))
	return soul, Certificate{
		Soul:         soul.String(),
		Original:     src,
		Transformed:  transformed,
		Rules:        []string{"map-fusion"},
		InitialScore: 424.44,
		FinalScore:   243,
		Fingerprint:  "rules-v1",
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	soul, cert := certificateFor(t, "(map (map xs f) g)", "(map xs (compose g f))")
	require.NoError(t, s.Put(cert))

	got, ok, err := s.Get(soul, "rules-v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cert.Transformed, got.Transformed)
	assert.Equal(t, cert.Rules, got.Rules)
	assert.False(t, got.CreatedAt.IsZero())

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStoreMisses(t *testing.T) {
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	soul, cert := certificateFor(t, "(map (map xs f) g)", "(map xs (compose g f))")

	_, ok, err := s.Get(soul, "rules-v1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(cert))
	_, ok, err = s.Get(soul, "rules-v2")
	require.NoError(t, err)
	assert.False(t, ok, "certificates from another rule set are ignored")

	require.NoError(t, s.Delete(soul))
	_, ok, err = s.Get(soul, "rules-v1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreAlphaEquivalentLookup(t *testing.T) {
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	_, cert := certificateFor(t, "(map xs (lam x (+ x 1)))", "(map xs inc)")
	require.NoError(t, s.Put(cert))

	renamed := canon.SoulOf(sexpr.MustParseTerm("(map xs (lam y (+ y 1)))"))
	_, ok, err := s.Get(renamed, "rules-v1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStorePersists(t *testing.T) {
	dir := t.TempDir()
	soul, cert := certificateFor(t, "(map (map xs f) g)", "(map xs (compose g f))")

	s, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Put(cert))
	require.NoError(t, s.Close())

	s, err = Open(Config{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	got, ok, err := s.Get(soul, "rules-v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 243.0, got.FinalScore)
}

func TestStoreRejects(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)

	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	assert.Error(t, s.Put(Certificate{Soul: "not-a-soul"}))
}
