package app

import (
	"crypto/rand"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

// codeAlphabet omits 0/O/1/I to keep redemption codes readable over the counter.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// newRedemptionCode returns a human-readable claim code like "K7KQ-2MNP-ZD4H".
// Uniqueness is enforced by the store; 60 bits of randomness makes a
// collision retry effectively unreachable.
func newRedemptionCode() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return ""
	}

	out := make([]byte, 0, 14)
	for i, c := range b {
		if i > 0 && i%4 == 0 {
			out = append(out, '-')
		}
		out = append(out, codeAlphabet[int(c)%len(codeAlphabet)])
	}
	return string(out)
}
