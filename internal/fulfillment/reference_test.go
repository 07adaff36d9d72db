package fulfillment

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

var referencePattern = regexp.MustCompile(`^ORD-\d{8}-[0-9A-Z]{5}$`)

func TestNewOrderReference(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)
	ref := NewOrderReference(now)

	if !referencePattern.MatchString(ref) {
		t.Fatalf("reference %q does not match ORD-YYYYMMDD-XXXXX", ref)
	}
	if !strings.HasPrefix(ref, "ORD-20260314-") {
		t.Fatalf("reference %q does not embed the order date", ref)
	}
}

func TestNewOrderReferenceFreshness(t *testing.T) {
	t.Parallel()

	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		ref := NewOrderReference(now)
		if seen[ref] {
			t.Fatalf("duplicate reference generated: %s", ref)
		}
		seen[ref] = true
	}
}

func TestNewDeliveryCode(t *testing.T) {
	t.Parallel()

	codePattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := NewDeliveryCode()
		if !codePattern.MatchString(code) {
			t.Fatalf("code %q outside [A-Z0-9]{8}", code)
		}
		seen[code] = true
	}
	if len(seen) < 199 {
		t.Fatalf("codes are not fresh enough: %d unique of 200", len(seen))
	}
}
