// Package rekey rotates the master secret protecting stored credentials.
//
// Every credential of an owner is read in batches, its secret opened with the
// old key and sealed again with the new one. Runs are resumable: a secret
// that already opens under the new key is left alone, so an interrupted
// rotation can simply be started again.
package rekey
