package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored credentials.
// It is generated from database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SourceKind identifies the format of an uploaded document.
type SourceKind string

const (
	SourceKindCSV   SourceKind = "csv"
	SourceKindText  SourceKind = "text"
	SourceKindImage SourceKind = "image"
	SourceKindPDF   SourceKind = "pdf"
)

// ParseSourceKind converts a user-supplied string into a SourceKind.
// Matching is case-insensitive. Unknown kinds return ErrUnsupportedSource.
func ParseSourceKind(s string) (SourceKind, error) {
	switch kind := SourceKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case SourceKindCSV, SourceKindText, SourceKindImage, SourceKindPDF:
		return kind, nil
	default:
		return "", ErrUnsupportedSource
	}
}

// RawContent is an uploaded document. It is owned by exactly one import run
// and discarded when the run completes.
type RawContent struct {
	Kind SourceKind
	Text string // Text payload for csv, text and pdf sources
	Data []byte // Binary payload for image sources (pdf bytes are treated as text)
}

// Size returns the payload size in bytes.
func (rc RawContent) Size() int {
	return len(rc.Text) + len(rc.Data)
}

// Chunk is a bounded slice of input text submitted as one unit to extraction.
type Chunk struct {
	Index int    // Position in the chunk sequence, starting at 0
	Text  string // Chunk contents without a trailing newline
	Size  int    // Length of Text in characters
}

// MaxNameLength bounds the length of a credential name in characters.
const MaxNameLength = 256

// CredentialRecord is the canonical, validated shape of an imported credential.
// Name and Secret are always non-empty. Secret is plaintext and must be
// encrypted before it leaves the pipeline.
type CredentialRecord struct {
	Name        string `json:"name"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	Secret      string `json:"password"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
}

// Redacted returns a copy of the record with the secret removed.
// Used wherever records leave the process (progress events, logs).
func (r CredentialRecord) Redacted() CredentialRecord {
	r.Secret = ""
	return r
}

// StoredCredential is the persisted form of a credential.
// Secret holds an envelope token, never plaintext.
type StoredCredential struct {
	Id          ID
	OwnerID     string
	Name        string
	Username    string
	Email       string
	Secret      string // Envelope token: salt:iv:ciphertext:tag
	Website     string
	Description string
	Fingerprint string // BLAKE2b of owner, name, username and website
	Version     uint64 // Incremented on every update
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RevealedCredential is a stored credential with its secret decrypted.
// Decrypted is false when the token could not be opened; Plaintext is empty in that case.
type RevealedCredential struct {
	StoredCredential
	Plaintext string
	Decrypted bool
}

// FingerprintOf computes a stable identity hash for a credential belonging to owner.
// The secret is deliberately excluded so rotating a password keeps the fingerprint.
func FingerprintOf(owner string, r CredentialRecord) string {
	h, _ := blake2b.New(16, nil)
	for _, part := range []string{owner, r.Name, r.Username, r.Website} {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(part))))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ImportResult summarizes a completed import run.
type ImportResult struct {
	RunID          string             `json:"runId"`
	Records        []CredentialRecord `json:"records"`
	TotalProcessed int                `json:"totalProcessed"`
	SuccessCount   int                `json:"successCount"`
	ErrorCount     int                `json:"errorCount"`
	Errors         []string           `json:"errors"`
}

// Failed reports whether every attempted save failed.
func (r *ImportResult) Failed() bool {
	return r.ErrorCount > 0 && r.SuccessCount == 0
}
