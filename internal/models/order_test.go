package models

import "testing"

func TestOrderOwnedBy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		orderUserID    string
		orderEmail     string
		requesterID    string
		requesterEmail string
		want           bool
	}{
		{
			name:        "direct owner",
			orderUserID: "user-1",
			requesterID: "user-1",
			want:        true,
		},
		{
			name:        "different account",
			orderUserID: "user-1",
			requesterID: "user-2",
			want:        false,
		},
		{
			name:           "guest order matched by email",
			orderUserID:    GuestUserID,
			orderEmail:     "g@example.com",
			requesterID:    "user-1",
			requesterEmail: "g@example.com",
			want:           true,
		},
		{
			name:           "guest order email match is case-insensitive",
			orderUserID:    GuestUserID,
			orderEmail:     "G@Example.com",
			requesterID:    "user-1",
			requesterEmail: "g@example.com",
			want:           true,
		},
		{
			name:           "guest order with different email",
			orderUserID:    GuestUserID,
			orderEmail:     "g@example.com",
			requesterID:    "user-1",
			requesterEmail: "other@example.com",
			want:           false,
		},
		{
			name:        "guest order without requester email",
			orderUserID: GuestUserID,
			orderEmail:  "g@example.com",
			requesterID: "user-1",
			want:        false,
		},
		{
			name:           "non-guest order never matches by email",
			orderUserID:    "user-2",
			orderEmail:     "shared@example.com",
			requesterID:    "user-1",
			requesterEmail: "shared@example.com",
			want:           false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			order := &Order{UserID: tt.orderUserID, Email: tt.orderEmail}
			if got := order.OwnedBy(tt.requesterID, tt.requesterEmail); got != tt.want {
				t.Fatalf("OwnedBy(%q, %q) = %v, want %v", tt.requesterID, tt.requesterEmail, got, tt.want)
			}
		})
	}

	var nilOrder *Order
	if nilOrder.OwnedBy("user-1", "g@example.com") {
		t.Fatal("nil order must not be owned by anyone")
	}
}
