package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bimbelkita/bimbel-api/model"
	"github.com/bimbelkita/bimbel-api/utils/auth"
)

// staleInvoiceAge is how long an unpaid invoice survives before cleanup.
const staleInvoiceAge = 30 * 24 * time.Hour

// CleanupStaleInvoices soft-deletes unpaid invoices that were never followed
// up. Waiting and paid invoices are never touched: they are either pending
// admin action or permanent history.
func (m *CronManager) CleanupStaleInvoices() {
	jobName := "cleanup_stale_invoices"
	cutoff := time.Now().Add(-staleInvoiceAge)

	res := m.db.
		Where("status = ? AND created_at < ?", model.InvoiceStatusUnpaid, cutoff).
		Delete(&model.Invoice{})
	if res.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to delete stale invoices: %w", res.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Removed %d stale unpaid invoices", res.RowsAffected))
}

// LogExpiringSubscriptions finds paid invoices expiring within 3 days and
// logs them for follow-up. Expiry itself stays a read-time derivation; this
// job never mutates invoice status.
func (m *CronManager) LogExpiringSubscriptions() {
	jobName := "log_expiring_subscriptions"
	now := time.Now()
	horizon := now.Add(3 * 24 * time.Hour)

	var invoices []model.Invoice
	err := m.db.
		Where("status = ? AND expires_at > ? AND expires_at <= ?", model.InvoiceStatusPaid, now, horizon).
		Find(&invoices).Error
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to query expiring invoices: %w", err))
		return
	}

	for _, invoice := range invoices {
		log.Printf("[CRON] Subscription for %s (invoice %s) expires at %s",
			invoice.StudentEmail, invoice.Number, invoice.ExpiresAt.Format(time.RFC3339))
	}

	m.logJobComplete(jobName, fmt.Sprintf("%d subscriptions expiring within 3 days", len(invoices)))
}

// CleanupExpiredTokens purges expired JWT blacklist entries
func (m *CronManager) CleanupExpiredTokens() {
	jobName := "cleanup_expired_tokens"

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := auth.NewBlacklistService(m.db).CleanupExpiredTokens(ctx); err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to cleanup tokens: %w", err))
		return
	}

	m.logJobComplete(jobName, "Expired blacklist entries removed")
}
