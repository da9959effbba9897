package envelope

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIterations = 1000

func newTestCipher(t *testing.T, secret string) *Cipher {
	t.Helper()
	c, err := New(secret, WithIterations(testIterations))
	require.NoError(t, err)
	return c
}

// flipBit flips the lowest bit of the first byte of field idx in token.
func flipBit(t *testing.T, token string, idx int) string {
	t.Helper()
	parts := strings.Split(token, ":")
	require.Len(t, parts, 4)
	raw, err := hex.DecodeString(parts[idx])
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	raw[0] ^= 0x01
	parts[idx] = hex.EncodeToString(raw)
	return strings.Join(parts, ":")
}

func TestNew(t *testing.T) {
	t.Run("requires master secret", func(t *testing.T) {
		c, err := New("")
		assert.ErrorIs(t, err, ErrMasterSecretMissing)
		assert.Nil(t, c)
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv(MasterSecretEnv, "env-secret")
		c, err := FromEnv(WithIterations(testIterations))
		require.NoError(t, err)
		token, err := c.Encrypt("pw")
		require.NoError(t, err)

		other := newTestCipher(t, "env-secret")
		plaintext, ok := other.Decrypt(token)
		assert.True(t, ok)
		assert.Equal(t, "pw", plaintext)
	})

	t.Run("from env missing", func(t *testing.T) {
		t.Setenv(MasterSecretEnv, "")
		_, err := FromEnv()
		assert.ErrorIs(t, err, ErrMasterSecretMissing)
	})
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t, "master")

	plaintexts := []string{
		"abc123",
		"",
		"p@ss:word:with:colons",
		"ünïcødé 🔑",
		strings.Repeat("long secret ", 500),
	}

	for _, p := range plaintexts {
		token, err := c.Encrypt(p)
		require.NoError(t, err)

		got, ok := c.Decrypt(token)
		require.True(t, ok, "decrypt failed for %q", p)
		assert.Equal(t, p, got)
	}
}

func TestCipher_DefaultIterations(t *testing.T) {
	c, err := New("master")
	require.NoError(t, err)
	assert.Equal(t, DefaultIterations, c.iterations)

	token, err := c.Encrypt("abc123")
	require.NoError(t, err)
	got, ok := c.Decrypt(token)
	require.True(t, ok)
	assert.Equal(t, "abc123", got)
}

func TestCipher_TokenFormat(t *testing.T) {
	c := newTestCipher(t, "master")
	token, err := c.Encrypt("abc123")
	require.NoError(t, err)

	parts := strings.Split(token, ":")
	require.Len(t, parts, 4)
	assert.Len(t, parts[0], saltSize*2, "salt")
	assert.Len(t, parts[1], ivSize*2, "iv")
	assert.Len(t, parts[2], len("abc123")*2, "ciphertext")
	assert.Len(t, parts[3], tagSize*2, "tag")

	for _, part := range parts {
		_, err := hex.DecodeString(part)
		assert.NoError(t, err)
	}
}

func TestCipher_FreshSaltAndIV(t *testing.T) {
	c := newTestCipher(t, "master")

	first, err := c.Encrypt("same")
	require.NoError(t, err)
	second, err := c.Encrypt("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	a, b := strings.Split(first, ":"), strings.Split(second, ":")
	assert.NotEqual(t, a[0], b[0], "salt must not be reused")
	assert.NotEqual(t, a[1], b[1], "iv must not be reused")
}

func TestCipher_DecryptFailsClosed(t *testing.T) {
	c := newTestCipher(t, "master")
	token, err := c.Encrypt("abc123")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "flipped ciphertext bit", token: flipBit(t, token, 2)},
		{name: "flipped tag bit", token: flipBit(t, token, 3)},
		{name: "flipped iv bit", token: flipBit(t, token, 1)},
		{name: "flipped salt bit", token: flipBit(t, token, 0)},
		{name: "empty token", token: ""},
		{name: "three fields", token: strings.Join(strings.Split(token, ":")[:3], ":")},
		{name: "five fields", token: token + ":00"},
		{name: "non-hex field", token: strings.Replace(token, token[:2], "zz", 1)},
		{name: "short salt", token: token[2:]},
		{name: "short tag", token: token[:len(token)-2]},
		{name: "garbage", token: "not a token at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var plaintext string
			var ok bool
			assert.NotPanics(t, func() {
				plaintext, ok = c.Decrypt(tt.token)
			})
			assert.False(t, ok)
			assert.Empty(t, plaintext)
		})
	}
}

func TestCipher_WrongMasterSecret(t *testing.T) {
	writer := newTestCipher(t, "right")
	reader := newTestCipher(t, "wrong")

	token, err := writer.Encrypt("abc123")
	require.NoError(t, err)

	plaintext, ok := reader.Decrypt(token)
	assert.False(t, ok)
	assert.Empty(t, plaintext)
}

func TestCipher_WrongIterations(t *testing.T) {
	writer := newTestCipher(t, "master")
	reader, err := New("master", WithIterations(testIterations+1))
	require.NoError(t, err)

	token, err := writer.Encrypt("abc123")
	require.NoError(t, err)

	_, ok := reader.Decrypt(token)
	assert.False(t, ok)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestCipher_RandomFailure(t *testing.T) {
	c, err := New("master", WithIterations(testIterations), WithRandom(failingReader{}))
	require.NoError(t, err)

	token, err := c.Encrypt("abc123")
	assert.ErrorIs(t, err, ErrEncryptFailed)
	assert.Empty(t, token)
}

func TestCipher_DeterministicWithFixedRandom(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, saltSize+ivSize)
	c1, err := New("master", WithIterations(testIterations), WithRandom(bytes.NewReader(seed)))
	require.NoError(t, err)
	c2, err := New("master", WithIterations(testIterations), WithRandom(bytes.NewReader(seed)))
	require.NoError(t, err)

	t1, err := c1.Encrypt("abc123")
	require.NoError(t, err)
	t2, err := c2.Encrypt("abc123")
	require.NoError(t, err)
	assert.Equal(t, t1, t2, "identical salt and iv must give identical tokens")
}
