package crypto

import (
	"crypto/md5" //nolint:gosec // gateway contract mandates MD5, not an integrity choice we own
	"encoding/hex"
	"strings"
)

// Checksum computes the keyless 16-byte digest the gateway expects over the
// UTF-8 bytes of s, rendered as lowercase hex.
func Checksum(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum compares a provided checksum against the digest of data.
// Comparison is case-insensitive: the integration documentation claims
// uppercase hex while observed traffic carries lowercase, so we accept both
// rather than guess which one the gateway actually enforces.
func VerifyChecksum(data, provided string) bool {
	return strings.EqualFold(Checksum(data), provided)
}
