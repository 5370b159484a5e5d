package subscription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/bimbelkita/bimbel-api/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB connects to the Postgres instance named by the DB_* environment
// variables. Requires RUN_INTEGRATION_TESTS=true.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run.")
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		envOrDefault("DB_HOST", "localhost"),
		os.Getenv("DB_USER_NAME"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		envOrDefault("DB_PORT", "5432"),
		envOrDefault("DB_SSL_MODE", "disable"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&model.User{}, &model.Package{}, &model.Invoice{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return db
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// seedStudentAndPackage creates one student and one package, removed again
// (with their invoices) when the test finishes.
func seedStudentAndPackage(t *testing.T, db *gorm.DB) (*model.User, *model.Package) {
	t.Helper()

	user := &model.User{
		Email:        fmt.Sprintf("student-%d@test.local", time.Now().UnixNano()),
		PasswordHash: "x",
		Name:         "Test Student",
		Role:         model.RoleStudent,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	pkg := &model.Package{Title: "Test Package", Price: 250000}
	if err := db.Create(pkg).Error; err != nil {
		t.Fatalf("failed to seed package: %v", err)
	}

	t.Cleanup(func() {
		db.Unscoped().Where("user_id = ?", user.ID).Delete(&model.Invoice{})
		db.Unscoped().Delete(pkg)
		db.Unscoped().Delete(user)
	})

	return user, pkg
}

func TestInvoiceTransitionGuards(t *testing.T) {
	db := setupTestDB(t)
	user, pkg := seedStudentAndPackage(t, db)

	svc := NewService(db, nil, 15000, 30)
	ctx := context.Background()

	invoice, err := svc.CreateInvoice(ctx, user, pkg.ID)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if invoice.Total != pkg.Price+15000 {
		t.Errorf("Total = %d, want %d", invoice.Total, pkg.Price+15000)
	}
	if invoice.Status != model.InvoiceStatusUnpaid {
		t.Fatalf("Status = %q, want unpaid", invoice.Status)
	}

	// Confirming an unpaid invoice must be refused
	if _, err := svc.Confirm(ctx, invoice.ID, 1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Confirm on unpaid: err = %v, want ErrInvalidTransition", err)
	}

	// Rejecting an unpaid invoice must be refused
	if _, _, err := svc.Reject(ctx, invoice.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Reject on unpaid: err = %v, want ErrInvalidTransition", err)
	}

	// Legal path: proof → waiting → paid
	invoice, err = svc.AttachProof(ctx, invoice.ID, user.ID, "https://cdn/p1", "proofs/1/p1")
	if err != nil {
		t.Fatalf("AttachProof: %v", err)
	}
	if invoice.Status != model.InvoiceStatusWaiting {
		t.Fatalf("Status after proof = %q, want waiting_confirmation", invoice.Status)
	}

	invoice, err = svc.Confirm(ctx, invoice.ID, 1)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if invoice.Status != model.InvoiceStatusPaid {
		t.Fatalf("Status after confirm = %q, want paid", invoice.Status)
	}
	if invoice.ExpiresAt == nil {
		t.Fatal("ExpiresAt not stamped on confirmation")
	}
	wantExpiry := time.Now().Add(30 * 24 * time.Hour)
	if diff := invoice.ExpiresAt.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Errorf("ExpiresAt = %v, want about %v", invoice.ExpiresAt, wantExpiry)
	}

	// Paid is terminal: neither a new proof nor another confirm may move it
	if _, err := svc.AttachProof(ctx, invoice.ID, user.ID, "https://cdn/p2", "proofs/1/p2"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("AttachProof on paid: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.Confirm(ctx, invoice.ID, 1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Confirm: err = %v, want ErrInvalidTransition", err)
	}
	if _, _, err := svc.Reject(ctx, invoice.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Reject on paid: err = %v, want ErrInvalidTransition", err)
	}
}

func TestInvoiceGuardsMissingInvoice(t *testing.T) {
	db := setupTestDB(t)

	svc := NewService(db, nil, 15000, 30)
	ctx := context.Background()

	if _, err := svc.Confirm(ctx, 999999999, 1); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("Confirm: err = %v, want ErrInvoiceNotFound", err)
	}
	if _, err := svc.AttachProof(ctx, 999999999, 1, "u", "k"); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("AttachProof: err = %v, want ErrInvoiceNotFound", err)
	}
	if _, _, err := svc.Reject(ctx, 999999999); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("Reject: err = %v, want ErrInvoiceNotFound", err)
	}
}

func TestRejectReturnsTheClearedProofKey(t *testing.T) {
	db := setupTestDB(t)
	user, pkg := seedStudentAndPackage(t, db)

	svc := NewService(db, nil, 15000, 30)
	ctx := context.Background()

	invoice, err := svc.CreateInvoice(ctx, user, pkg.ID)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	if _, err := svc.AttachProof(ctx, invoice.ID, user.ID, "https://cdn/old", "proofs/1/old"); err != nil {
		t.Fatalf("first AttachProof: %v", err)
	}
	// Re-upload while still waiting replaces the proof
	if _, err := svc.AttachProof(ctx, invoice.ID, user.ID, "https://cdn/new", "proofs/1/new"); err != nil {
		t.Fatalf("second AttachProof: %v", err)
	}

	rejected, proofKey, err := svc.Reject(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if proofKey != "proofs/1/new" {
		t.Errorf("proofKey = %q, want the key that was actually cleared (proofs/1/new)", proofKey)
	}
	if rejected.Status != model.InvoiceStatusUnpaid {
		t.Errorf("Status = %q, want unpaid", rejected.Status)
	}
	if rejected.ProofURL != "" || rejected.ProofKey != "" {
		t.Errorf("proof fields not cleared: %q %q", rejected.ProofURL, rejected.ProofKey)
	}
}
