package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bimbelkita/bimbel-api/model"
	"github.com/bimbelkita/bimbel-api/utils/cache"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPackageNotFound   = errors.New("package not found")
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrInvalidTransition = errors.New("invoice is not in a state that allows this action")
	ErrNumberCollision   = errors.New("invoice number collision, retry")
)

const statusCacheTTL = 60 * time.Second

// Service owns the invoice lifecycle: creation, proof attachment, admin
// confirmation/rejection, and the derived per-user subscription state.
type Service struct {
	db         *gorm.DB
	redisCache *cache.RedisCache // optional, nil disables caching
	adminFee   int64
	period     time.Duration
}

// NewService creates a subscription service. subscriptionDays is the single
// place the paid period is defined.
func NewService(db *gorm.DB, redisCache *cache.RedisCache, adminFee int64, subscriptionDays int) *Service {
	return &Service{
		db:         db,
		redisCache: redisCache,
		adminFee:   adminFee,
		period:     time.Duration(subscriptionDays) * 24 * time.Hour,
	}
}

// AdminFee returns the fixed surcharge added to every package price.
func (s *Service) AdminFee() int64 {
	return s.adminFee
}

// GenerateInvoiceNumber builds a human-readable, practically-unique number.
// The random suffix comes from a fresh UUID; the unique index on the column
// is the backstop.
func GenerateInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), suffix)
}

// BuildInvoice snapshots the student profile and the package into a fresh
// unpaid invoice. Total is always price plus the admin fee; later edits to
// the package or profile never touch these fields.
func BuildInvoice(user *model.User, pkg *model.Package, adminFee int64, now time.Time) *model.Invoice {
	return &model.Invoice{
		Number:        GenerateInvoiceNumber(now),
		UserID:        user.ID,
		StudentName:   user.Name,
		StudentEmail:  user.Email,
		StudentPhone:  user.Phone,
		StudentSchool: user.School,
		StudentGrade:  user.Grade,
		PackageID:     pkg.ID,
		PackageName:   pkg.Title,
		PackagePrice:  pkg.Price,
		AdminFee:      adminFee,
		Total:         pkg.Price + adminFee,
		Status:        model.InvoiceStatusUnpaid,
	}
}

// CreateInvoice creates an unpaid invoice for the given package, snapshotting
// the package and student profile fields at purchase time. A failure loading
// the package leaves no invoice behind.
func (s *Service) CreateInvoice(ctx context.Context, user *model.User, packageID uint) (*model.Invoice, error) {
	var pkg model.Package
	if err := s.db.WithContext(ctx).First(&pkg, packageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}

	invoice := BuildInvoice(user, &pkg, s.adminFee, time.Now())

	err := s.db.WithContext(ctx).Create(invoice).Error
	if err != nil && isUniqueViolation(err) {
		// One retry with a fresh suffix, then give up
		invoice.Number = GenerateInvoiceNumber(time.Now())
		err = s.db.WithContext(ctx).Create(invoice).Error
		if err != nil && isUniqueViolation(err) {
			return nil, ErrNumberCollision
		}
	}
	if err != nil {
		return nil, err
	}

	s.invalidateStatus(ctx, user.ID)
	return invoice, nil
}

// AttachProof records an uploaded payment proof and moves the invoice to
// waiting_confirmation. The caller must have completed the storage upload
// already; this method only runs after that succeeds, so a failure here is
// retryable without re-uploading.
func (s *Service) AttachProof(ctx context.Context, invoiceID, userID uint, proofURL, proofKey string) (*model.Invoice, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Where("id = ? AND user_id = ? AND status IN ?", invoiceID, userID,
			[]string{model.InvoiceStatusUnpaid, model.InvoiceStatusWaiting}).
		Updates(map[string]interface{}{
			"proof_url": proofURL,
			"proof_key": proofKey,
			"status":    model.InvoiceStatusWaiting,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.classifyMiss(ctx, invoiceID)
	}

	s.invalidateStatus(ctx, userID)
	return s.getInvoice(ctx, invoiceID)
}

// Confirm moves a waiting invoice to paid and stamps the expiry. The filtered
// update keeps the transition one-directional even if two admins race.
func (s *Service) Confirm(ctx context.Context, invoiceID, adminID uint) (*model.Invoice, error) {
	expiresAt := time.Now().Add(s.period)

	res := s.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Where("id = ? AND status = ?", invoiceID, model.InvoiceStatusWaiting).
		Updates(map[string]interface{}{
			"status":       model.InvoiceStatusPaid,
			"expires_at":   expiresAt,
			"confirmed_by": adminID,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.classifyMiss(ctx, invoiceID)
	}

	invoice, err := s.getInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	s.invalidateStatus(ctx, invoice.UserID)
	return invoice, nil
}

// Reject reverts a waiting invoice to unpaid and clears the proof reference.
// The stored object key is returned so the caller can delete the file. The
// row is locked for the read-then-clear so a concurrent re-upload cannot
// swap the key in between; the key returned is always the one cleared.
func (s *Service) Reject(ctx context.Context, invoiceID uint) (*model.Invoice, string, error) {
	var proofKey string
	var userID uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice model.Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&invoice, invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}
		if invoice.Status != model.InvoiceStatusWaiting {
			return ErrInvalidTransition
		}

		proofKey = invoice.ProofKey
		userID = invoice.UserID

		return tx.Model(&model.Invoice{}).
			Where("id = ?", invoiceID).
			Updates(map[string]interface{}{
				"proof_url": "",
				"proof_key": "",
				"status":    model.InvoiceStatusUnpaid,
			}).Error
	})
	if err != nil {
		return nil, "", err
	}

	s.invalidateStatus(ctx, userID)
	invoice, err := s.getInvoice(ctx, invoiceID)
	return invoice, proofKey, err
}

// LatestInvoice returns the user's most-recently-created invoice, or nil when
// none exists. Only this invoice determines the effective subscription state;
// older ones are read-only history.
func (s *Service) LatestInvoice(ctx context.Context, userID uint) (*model.Invoice, error) {
	var invoice model.Invoice
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// CurrentStatus derives the user's subscription state from their latest
// invoice, consulting the short-TTL cache first.
func (s *Service) CurrentStatus(ctx context.Context, userID uint) (Status, error) {
	cacheKey := statusCacheKey(userID)

	if s.redisCache != nil {
		var cached Status
		if err := s.redisCache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	invoice, err := s.LatestInvoice(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	status := StatusOf(invoice, time.Now())
	if s.redisCache != nil {
		s.redisCache.SetJSON(ctx, cacheKey, status, statusCacheTTL)
	}
	return status, nil
}

func (s *Service) getInvoice(ctx context.Context, invoiceID uint) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := s.db.WithContext(ctx).First(&invoice, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// classifyMiss distinguishes "no such invoice" from "wrong status" after a
// filtered update touched zero rows.
func (s *Service) classifyMiss(ctx context.Context, invoiceID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Invoice{}).Where("id = ?", invoiceID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrInvoiceNotFound
	}
	return ErrInvalidTransition
}

func (s *Service) invalidateStatus(ctx context.Context, userID uint) {
	if s.redisCache != nil {
		s.redisCache.Delete(ctx, statusCacheKey(userID))
	}
}

func statusCacheKey(userID uint) string {
	return fmt.Sprintf("subscription:status:%d", userID)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Postgres unique_violation surfaces as SQLSTATE 23505
	return err != nil && strings.Contains(err.Error(), "23505")
}
