package fulfillment

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const referenceAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderReference returns a display reference of the form
// ORD-YYYYMMDD-XXXXX where the suffix is 5 random base36 characters. The
// reference is for display and audit only, never a lookup key.
func NewOrderReference(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), randomString(referenceAlphabet, 5))
}

func randomString(alphabet string, length int) string {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// nothing sensible to do but stop.
			panic(fmt.Sprintf("fulfillment: random source unavailable: %v", err))
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out)
}
