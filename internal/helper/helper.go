package helper

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash8 returns a short stable digest of s, used to reference emails in
// logs without writing the address itself.
func Hash8(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
