package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(string(k))
		assert.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
}

func TestParseKindRejectsUnknown(t *testing.T) {
	// unknown kinds are a hard error, never a silent fallback
	for _, s := range []string{"", "apartment", "HOUSE_FOR_SALE", "house-for-sale"} {
		_, err := ParseKind(s)
		assert.Error(t, err, "kind %q", s)
	}
}
