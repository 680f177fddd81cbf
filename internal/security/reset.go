package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ResetTokenTTL bounds how long a mailed reset token stays usable.
const ResetTokenTTL = 10 * time.Minute

// NewResetToken returns a random token plus its sha256 digest. The plain
// token goes into the outbound email only; the digest is what gets stored.
func NewResetToken() (plain, hashed string, err error) {
	b := make([]byte, 32)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}
	plain = hex.EncodeToString(b)
	return plain, HashResetToken(plain), nil
}

// HashResetToken maps an incoming plain token to the at-rest form for lookup.
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
