package canon

import (
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/gnoswap-labs/surgeon/internal/ir"
)

const (
	soulDomain = "SOUL:"
	soulPrefix = "soul:"
)

// Soul is the content-derived identity of a term: a SHA-256 digest over its
// canonical encoding. Equal souls mean equal canonical forms.
type Soul struct {
	d digest.Digest
}

// SoulOf computes the soul of t.
func SoulOf(t ir.Term) Soul {
	return SoulOfCanonical(Canonicalize(t))
}

// SoulOfCanonical computes the soul of a term that is already canonical.
func SoulOfCanonical(canonical ir.Term) Soul {
	return Soul{d: digest.SHA256.FromString(soulDomain + canonical.String())}
}

// ParseSoul parses the output of Soul.String.
func ParseSoul(s string) (Soul, error) {
	hex, ok := strings.CutPrefix(s, soulPrefix)
	if !ok {
		return Soul{}, fmt.Errorf("invalid soul %q: missing %q prefix", s, soulPrefix)
	}
	d := digest.NewDigestFromEncoded(digest.SHA256, hex)
	if err := d.Validate(); err != nil {
		return Soul{}, fmt.Errorf("invalid soul %q: %w", s, err)
	}
	return Soul{d: d}, nil
}

func (s Soul) String() string {
	if s.d == "" {
		return soulPrefix
	}
	return soulPrefix + s.d.Encoded()
}

// Short returns the first 12 hex digits, for display.
func (s Soul) Short() string {
	if s.d == "" {
		return ""
	}
	enc := s.d.Encoded()
	if len(enc) > 12 {
		return enc[:12]
	}
	return enc
}

// Digest exposes the underlying digest.
func (s Soul) Digest() digest.Digest {
	return s.d
}

// IsZero reports whether s was never computed.
func (s Soul) IsZero() bool {
	return s.d == ""
}

// Bytes is the key form used by persistent stores.
func (s Soul) Bytes() []byte {
	return []byte(s.String())
}
