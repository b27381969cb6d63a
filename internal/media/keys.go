package media

import (
	"crypto/rand"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

const suffixLen = 8

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// KeyDeriver computes storage keys for new uploads. The key layout
// <kind>/<ownerID>/<timestamp>_<random>.<ext> is a durable on-disk contract:
// reconciliation tooling relies on it staying stable.
type KeyDeriver struct {
	now    func() time.Time
	random io.Reader
}

// NewKeyDeriver returns a KeyDeriver backed by the system clock and
// crypto/rand.
func NewKeyDeriver() *KeyDeriver {
	return &KeyDeriver{now: time.Now, random: rand.Reader}
}

// NewKeyDeriverWith allows tests to control the clock and random source.
func NewKeyDeriverWith(now func() time.Time, random io.Reader) *KeyDeriver {
	return &KeyDeriver{now: now, random: random}
}

// Derive computes a fresh storage key for an upload. The second-granularity
// timestamp plus an unguessable 8-character suffix keeps concurrent uploads
// to the same owner collision-free. Returns ErrInvalidFilename when the
// original filename carries no extension.
func (d *KeyDeriver) Derive(ref OwnerRef, originalFilename string) (string, error) {
	ext := strings.TrimPrefix(path.Ext(originalFilename), ".")
	if ext == "" {
		return "", fmt.Errorf("derive key for %q: %w", originalFilename, ErrInvalidFilename)
	}

	suffix, err := d.randomSuffix()
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	ts := d.now().Format("20060102_150405")
	return fmt.Sprintf("%s/%d/%s_%s.%s", ref.Kind, ref.ID, ts, suffix, strings.ToLower(ext)), nil
}

func (d *KeyDeriver) randomSuffix() (string, error) {
	buf := make([]byte, suffixLen)
	if _, err := io.ReadFull(d.random, buf); err != nil {
		return "", fmt.Errorf("read random suffix: %w", err)
	}
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return string(buf), nil
}
