package util

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CacheHashVersion is appended to query hash input so that bumping it
// invalidates every previously cached query.
const CacheHashVersion = "v1.0"

// GenerateHash creates a short identifier from a fact summary and a timestamp.
func GenerateHash(summary string, timestamp int64) string {
	hasher := sha256.New()
	hasher.Write([]byte(summary))
	hasher.Write([]byte(time.Unix(0, timestamp).String()))
	return hex.EncodeToString(hasher.Sum(nil))[:16] // Use first 16 chars of the hash
}

// QueryHash creates a deterministic full-length hash for a cacheable query.
// The cache prefix and hash version are part of the input so that cache
// namespaces stay isolated and a version bump invalidates old entries.
func QueryHash(prefix, query string) string {
	hasher := sha256.New()
	hasher.Write([]byte(prefix + ":" + query + ":" + CacheHashVersion))
	return hex.EncodeToString(hasher.Sum(nil))
}
