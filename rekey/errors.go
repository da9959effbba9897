package rekey

import "errors"

var (
	// ErrRepositoryRequired is returned when no repository is given.
	ErrRepositoryRequired = errors.New("credential repository is required")

	// ErrKeyRequired is returned when either the old or the new key is missing.
	ErrKeyRequired = errors.New("both old and new keys are required")

	// ErrOwnerRequired is returned when Run is called without an owner.
	ErrOwnerRequired = errors.New("owner is required")
)
