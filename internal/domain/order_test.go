package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestOrderStatus_Terminal(t *testing.T) {
	cases := []struct {
		status   domain.OrderStatus
		terminal bool
	}{
		{domain.OrderStatusCreated, false},
		{domain.OrderStatusPaid, true},
		{domain.OrderStatusCancelled, true},
	}

	for _, tc := range cases {
		if got := tc.status.Terminal(); got != tc.terminal {
			t.Fatalf("status %s: expected terminal=%v, got %v", tc.status, tc.terminal, got)
		}
	}
}

func TestOrderStatus_Valid(t *testing.T) {
	if !domain.OrderStatusPaid.Valid() {
		t.Fatal("paid must be valid")
	}
	if domain.OrderStatus("refunded").Valid() {
		t.Fatal("unknown status must be invalid")
	}
}

func TestOrder_CanPay(t *testing.T) {
	order := domain.Order{ID: "o1", Status: domain.OrderStatusCreated}
	if !order.CanPay() {
		t.Fatal("created order must be payable")
	}

	order.Status = domain.OrderStatusCancelled
	if order.CanPay() {
		t.Fatal("cancelled order must not be payable")
	}
}

func TestUserKey(t *testing.T) {
	if domain.UserKey("42") != domain.IdentityKey("user:42") {
		t.Fatalf("unexpected key: %s", domain.UserKey("42"))
	}
	if domain.UserKey("") != domain.GuestKey {
		t.Fatal("empty user id must fall back to guest key")
	}
}
