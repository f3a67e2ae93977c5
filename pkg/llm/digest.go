package llm

import (
	"crypto/sha256"
	"encoding/hex"
)

// DigestString returns the sha256 digest of s in hex form. Used to reference
// rendered prompts in logs and journal records without storing the full text.
func DigestString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
