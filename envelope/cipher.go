package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// MasterSecretEnv names the environment variable holding the master secret.
const MasterSecretEnv = "VAULTIMPORT_MASTER_SECRET"

const (
	// DefaultIterations is the PBKDF2 work factor.
	DefaultIterations = 310000

	keySize   = 32 // AES-256
	saltSize  = 16
	ivSize    = 16
	tagSize   = 16
	separator = ":"
)

// Cipher encrypts and decrypts individual secrets under a master secret.
// It is safe for concurrent use; the master secret is never mutated.
type Cipher struct {
	master     []byte
	iterations int
	random     io.Reader
	logger     *slog.Logger
}

// Option configures a Cipher.
type Option func(*Cipher)

// WithIterations overrides the PBKDF2 iteration count.
// Tokens do not record the count, so every Cipher reading a token must use
// the same value that wrote it. Intended for tests.
func WithIterations(n int) Option {
	return func(c *Cipher) {
		if n > 0 {
			c.iterations = n
		}
	}
}

// WithRandom replaces the source of salts and IVs.
func WithRandom(r io.Reader) Option {
	return func(c *Cipher) {
		if r != nil {
			c.random = r
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cipher) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Cipher bound to masterSecret.
// Returns ErrMasterSecretMissing if masterSecret is empty.
func New(masterSecret string, opts ...Option) (*Cipher, error) {
	if masterSecret == "" {
		return nil, ErrMasterSecretMissing
	}
	c := &Cipher{
		master:     []byte(masterSecret),
		iterations: DefaultIterations,
		random:     rand.Reader,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "envelope")
	return c, nil
}

// FromEnv creates a Cipher from the VAULTIMPORT_MASTER_SECRET environment variable.
func FromEnv(opts ...Option) (*Cipher, error) {
	return New(os.Getenv(MasterSecretEnv), opts...)
}

// Encrypt seals plaintext under a freshly derived key and returns the token
// salt:iv:ciphertext:tag, each field hex encoded.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(c.random, salt); err != nil {
		return "", fmt.Errorf("%w: salt: %w", ErrEncryptFailed, err)
	}
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return "", fmt.Errorf("%w: iv: %w", ErrEncryptFailed, err)
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryptFailed, err)
	}

	// Seal returns ciphertext || tag.
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		hex.EncodeToString(salt),
		hex.EncodeToString(iv),
		hex.EncodeToString(ciphertext),
		hex.EncodeToString(tag),
	}, separator), nil
}

// Decrypt opens a token produced by Encrypt.
// ok is false for malformed tokens, tampered fields or a wrong master secret.
func (c *Cipher) Decrypt(token string) (plaintext string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("recovered while decrypting", "panic", r)
			plaintext, ok = "", false
		}
	}()

	salt, iv, ciphertext, tag, ok := splitToken(token)
	if !ok {
		c.logger.Debug("malformed envelope token")
		return "", false
	}

	gcm, err := c.aead(salt)
	if err != nil {
		c.logger.Debug("key derivation failed", "err", err)
		return "", false
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	opened, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		c.logger.Debug("envelope authentication failed")
		return "", false
	}
	return string(opened), true
}

// aead derives the per-token key from salt and builds the GCM instance.
func (c *Cipher) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.master, salt, c.iterations, keySize, sha512.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}

// splitToken decodes the four hex fields of a token and checks their sizes.
func splitToken(token string) (salt, iv, ciphertext, tag []byte, ok bool) {
	parts := strings.Split(token, separator)
	if len(parts) != 4 {
		return nil, nil, nil, nil, false
	}

	decoded := make([][]byte, len(parts))
	for i, part := range parts {
		b, err := hex.DecodeString(part)
		if err != nil {
			return nil, nil, nil, nil, false
		}
		decoded[i] = b
	}

	salt, iv, ciphertext, tag = decoded[0], decoded[1], decoded[2], decoded[3]
	if len(salt) != saltSize || len(iv) != ivSize || len(tag) != tagSize {
		return nil, nil, nil, nil, false
	}
	return salt, iv, ciphertext, tag, true
}
