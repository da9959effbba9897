// Package retry provides exponential backoff for operations against the
// model service and the credential store.
package retry
