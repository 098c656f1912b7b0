package orders

import (
	"crypto/rand"
	"fmt"
)

// orderIDAlphabet leaves out 0/O and 1/I so references can be read over the
// phone. Its length of 32 keeps byte masking unbiased.
const orderIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// OrderIDLength is the length of external order references.
const OrderIDLength = 8

// NewOrderID returns a random external order reference.
func NewOrderID() (string, error) {
	buf := make([]byte, OrderIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = orderIDAlphabet[int(b)&(len(orderIDAlphabet)-1)]
	}
	return string(buf), nil
}
