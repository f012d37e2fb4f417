// Package fingerprint computes content fingerprints for idempotent ingestion.
//
// A fingerprint is the SHA-256 digest of whitespace-normalized document text.
// Two uploads with identical normalized content produce the same fingerprint
// regardless of filename or upload time, which is what lets the ingestion
// pipeline detect re-uploads before doing any embedding work.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// recordNamespace is the UUIDv5 namespace for chunk record IDs.
var recordNamespace = uuid.MustParse("9f2c1b52-7c1e-4b8a-9f6d-3a8e5d1c0b42")

// Normalize collapses runs of whitespace to single spaces and trims the
// result. Case is preserved: normalization is about byte-identical layout
// differences (line wrapping, trailing spaces), not semantic equivalence.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Hash returns the hex-encoded SHA-256 digest of the normalized text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// RecordID returns a deterministic UUID for the chunk at the given ordinal
// index of the document with the given fingerprint. Every store backend
// writes the same ID for the same logical chunk, so re-ingesting a document
// overwrites or skips rather than duplicating.
func RecordID(fp string, index int) string {
	return uuid.NewSHA1(recordNamespace, []byte(fp+":"+strconv.Itoa(index))).String()
}
