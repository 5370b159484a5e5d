package subscription

import (
	"strings"
	"testing"
	"time"

	"github.com/bimbelkita/bimbel-api/model"
)

func TestBuildInvoice(t *testing.T) {
	now := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	user := &model.User{
		ID:     7,
		Name:   "Siti Rahma",
		Email:  "siti@example.com",
		Phone:  "+628123456789",
		School: "SMA Negeri 3",
		Grade:  "11",
	}

	tests := []struct {
		name      string
		price     int64
		adminFee  int64
		wantTotal int64
	}{
		{"standard package", 250000, 15000, 265000},
		{"free trial package", 0, 15000, 15000},
		{"fee waived", 250000, 0, 250000},
		{"both zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := &model.Package{ID: 3, Title: "Paket Intensif", Price: tt.price}

			invoice := BuildInvoice(user, pkg, tt.adminFee, now)

			if invoice.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", invoice.Total, tt.wantTotal)
			}
			if invoice.Total != invoice.PackagePrice+invoice.AdminFee {
				t.Errorf("Total %d != PackagePrice %d + AdminFee %d",
					invoice.Total, invoice.PackagePrice, invoice.AdminFee)
			}
			if invoice.Status != model.InvoiceStatusUnpaid {
				t.Errorf("Status = %q, want %q", invoice.Status, model.InvoiceStatusUnpaid)
			}
		})
	}
}

func TestBuildInvoiceSnapshots(t *testing.T) {
	now := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	user := &model.User{
		ID:     7,
		Name:   "Siti Rahma",
		Email:  "siti@example.com",
		Phone:  "+628123456789",
		School: "SMA Negeri 3",
		Grade:  "11",
	}
	pkg := &model.Package{ID: 3, Title: "Paket Intensif", Price: 250000}

	invoice := BuildInvoice(user, pkg, 15000, now)

	// Snapshot fields are copies; later profile or package edits must not
	// reach into billing history.
	user.Name = "renamed"
	pkg.Title = "retitled"
	pkg.Price = 1

	if invoice.StudentName != "Siti Rahma" || invoice.StudentEmail != "siti@example.com" ||
		invoice.StudentPhone != "+628123456789" || invoice.StudentSchool != "SMA Negeri 3" ||
		invoice.StudentGrade != "11" {
		t.Errorf("student snapshot not taken at build time: %+v", invoice)
	}
	if invoice.PackageName != "Paket Intensif" || invoice.PackagePrice != 250000 {
		t.Errorf("package snapshot not taken at build time: %+v", invoice)
	}
	if invoice.UserID != 7 || invoice.PackageID != 3 {
		t.Errorf("references not recorded: user %d, package %d", invoice.UserID, invoice.PackageID)
	}
	if !strings.HasPrefix(invoice.Number, "INV-20250402-") {
		t.Errorf("Number = %q, want an INV-20250402 number", invoice.Number)
	}
	if invoice.ExpiresAt != nil || invoice.ConfirmedBy != nil {
		t.Error("expiry and confirmer must be unset until confirmation")
	}
}
