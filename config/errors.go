package config

import "errors"

var (
	// ErrMasterSecretMissing is returned when VAULTIMPORT_MASTER_SECRET is unset.
	ErrMasterSecretMissing = errors.New("master secret missing: set " + EnvMasterSecret)

	// ErrUnknownStore is returned when the store is neither badger nor sqlite.
	ErrUnknownStore = errors.New("unknown store: must be badger or sqlite")

	// ErrInvalidValue is returned when an environment variable cannot be parsed.
	ErrInvalidValue = errors.New("invalid configuration value")

	// ErrConfigNotFound is returned when an explicitly named config file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
