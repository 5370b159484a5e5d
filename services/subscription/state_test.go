package subscription

import (
	"strings"
	"testing"
	"time"

	"github.com/bimbelkita/bimbel-api/model"
)

func TestDeriveState(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	before := now.Add(-24 * time.Hour)
	after := now.Add(24 * time.Hour)

	tests := []struct {
		name    string
		invoice *model.Invoice
		want    State
	}{
		{
			name:    "no invoice means none",
			invoice: nil,
			want:    StateNone,
		},
		{
			name:    "fresh invoice is unpaid",
			invoice: &model.Invoice{Status: model.InvoiceStatusUnpaid},
			want:    StateUnpaid,
		},
		{
			name:    "proof uploaded is waiting",
			invoice: &model.Invoice{Status: model.InvoiceStatusWaiting},
			want:    StateWaiting,
		},
		{
			name:    "paid before expiry is active",
			invoice: &model.Invoice{Status: model.InvoiceStatusPaid, ExpiresAt: &after},
			want:    StateActive,
		},
		{
			name:    "paid past expiry is expired",
			invoice: &model.Invoice{Status: model.InvoiceStatusPaid, ExpiresAt: &before},
			want:    StateExpired,
		},
		{
			name:    "paid at the exact expiry instant is still active",
			invoice: &model.Invoice{Status: model.InvoiceStatusPaid, ExpiresAt: &now},
			want:    StateActive,
		},
		{
			name:    "paid with no expiry stays active",
			invoice: &model.Invoice{Status: model.InvoiceStatusPaid},
			want:    StateActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveState(tt.invoice, now); got != tt.want {
				t.Errorf("DeriveState() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeriveStateIsTimeOnly(t *testing.T) {
	// The active/expired split must never mutate the invoice; the same row
	// yields different states at different instants.
	expiry := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	invoice := &model.Invoice{Status: model.InvoiceStatusPaid, ExpiresAt: &expiry}

	if got := DeriveState(invoice, expiry.Add(-time.Hour)); got != StateActive {
		t.Errorf("before expiry: got %v, want %v", got, StateActive)
	}
	if got := DeriveState(invoice, expiry.Add(time.Hour)); got != StateExpired {
		t.Errorf("after expiry: got %v, want %v", got, StateExpired)
	}
	if invoice.Status != model.InvoiceStatusPaid {
		t.Errorf("invoice status mutated to %q", invoice.Status)
	}
}

func TestStatusOfLocksEverythingButActive(t *testing.T) {
	now := time.Now()
	after := now.Add(time.Hour)
	before := now.Add(-time.Hour)

	tests := []struct {
		name     string
		invoice  *model.Invoice
		isLocked bool
	}{
		{"none is locked", nil, true},
		{"unpaid is locked", &model.Invoice{Status: model.InvoiceStatusUnpaid}, true},
		{"waiting is locked", &model.Invoice{Status: model.InvoiceStatusWaiting}, true},
		{"active is unlocked", &model.Invoice{Status: model.InvoiceStatusPaid, ExpiresAt: &after}, false},
		{"expired is locked", &model.Invoice{Status: model.InvoiceStatusPaid, ExpiresAt: &before}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := StatusOf(tt.invoice, now)
			if status.IsLocked != tt.isLocked {
				t.Errorf("IsLocked = %v, want %v (state %v)", status.IsLocked, tt.isLocked, status.State)
			}
		})
	}
}

func TestGenerateInvoiceNumber(t *testing.T) {
	now := time.Date(2025, 3, 7, 10, 30, 0, 0, time.UTC)

	number := GenerateInvoiceNumber(now)
	if !strings.HasPrefix(number, "INV-20250307-") {
		t.Fatalf("number %q does not carry the issue date", number)
	}

	suffix := strings.TrimPrefix(number, "INV-20250307-")
	if len(suffix) != 6 {
		t.Errorf("suffix %q is not 6 characters", suffix)
	}
	if suffix != strings.ToUpper(suffix) {
		t.Errorf("suffix %q is not upper-case", suffix)
	}

	// Two calls should practically never collide
	if other := GenerateInvoiceNumber(now); other == number {
		t.Errorf("consecutive numbers collided: %q", number)
	}
}
