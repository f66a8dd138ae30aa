package store

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	t.Run("prefix, 16-byte digest, then the hex account id", func(t *testing.T) {
		key := Key("alice")
		assert.True(t, strings.HasPrefix(key, keyPrefix))
		rest := strings.TrimPrefix(key, keyPrefix)
		assert.Len(t, rest, keyDigestSize*2+len("alice")*2)
		assert.True(t, strings.HasSuffix(rest, "616c696365"))
	})

	t.Run("deterministic and distinct per account", func(t *testing.T) {
		assert.Equal(t, Key("alice"), Key("alice"))
		assert.NotEqual(t, Key("alice"), Key("bob"))
	})
}

func TestNewKeyHash(t *testing.T) {
	h := newKeyHash()
	assert.Equal(t, keyDigestSize, h.Size())

	// BLAKE2b-128 of the empty input
	assert.Equal(t, "cae66941d9efbd404e4d88758ea67670", hex.EncodeToString(h.Sum(nil)))
}
