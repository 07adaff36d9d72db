package fulfillment

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8
)

// NewDeliveryCode returns an 8-character code drawn uniformly from [A-Z0-9].
// Global uniqueness is enforced by the code store's unique index; callers
// retry generation on conflict.
func NewDeliveryCode() string {
	return randomString(codeAlphabet, codeLength)
}
