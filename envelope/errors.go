package envelope

import "errors"

var (
	// ErrMasterSecretMissing is returned when no master secret is configured.
	ErrMasterSecretMissing = errors.New("master secret not configured: set " + MasterSecretEnv)

	// ErrEncryptFailed wraps failures from the random source or the cipher.
	ErrEncryptFailed = errors.New("encryption failed")

	// ErrCipherRequired is returned when a cache is built without a cipher.
	ErrCipherRequired = errors.New("cipher required")
)
