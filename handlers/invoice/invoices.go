package invoice

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/bimbelkita/bimbel-api/model"
	"github.com/bimbelkita/bimbel-api/services/spaces"
	"github.com/bimbelkita/bimbel-api/services/subscription"
	"github.com/bimbelkita/bimbel-api/utils/middleware"
	"github.com/bimbelkita/bimbel-api/utils/response"
	"github.com/bimbelkita/bimbel-api/utils/uploads"
	"github.com/bimbelkita/bimbel-api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceHandler handles invoice lifecycle requests
type InvoiceHandler struct {
	db           *gorm.DB
	subscription *subscription.Service
	storage      *spaces.Client
	validator    *validation.Validator
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(db *gorm.DB, subscriptionService *subscription.Service, storage *spaces.Client) *InvoiceHandler {
	return &InvoiceHandler{
		db:           db,
		subscription: subscriptionService,
		storage:      storage,
		validator:    validation.NewValidator(),
	}
}

// CreateInvoiceRequest selects the package to purchase
type CreateInvoiceRequest struct {
	PackageID uint `json:"package_id" validate:"required,min=1"`
}

// CreateInvoice handles POST /api/v1/invoices (student only)
func (h *InvoiceHandler) CreateInvoice(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateInvoiceRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	invoice, err := h.subscription.CreateInvoice(c.Context(), user, req.PackageID)
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrPackageNotFound):
			return response.NotFound(c, "Package not found")
		case errors.Is(err, subscription.ErrNumberCollision):
			return response.Conflict(c, "Could not allocate an invoice number, please retry")
		default:
			return response.InternalServerError(c, "Failed to create invoice")
		}
	}

	return response.Created(c, invoice)
}

// UploadProof handles POST /api/v1/invoices/:id/proof (student only).
// The file is stored first; the invoice only flips to waiting_confirmation
// after storage succeeded. A DB failure after upload is surfaced as
// retryable, never swallowed.
func (h *InvoiceHandler) UploadProof(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	invoiceID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid invoice id")
	}

	if h.storage == nil {
		return response.InternalServerError(c, "File storage is not configured")
	}

	file, err := c.FormFile("proof")
	if err != nil {
		return response.BadRequest(c, "Missing proof file")
	}

	result, err := uploads.ValidateProof(file)
	if err != nil {
		return response.InternalServerError(c, "Failed to read uploaded file")
	}
	if !result.Valid {
		return response.BadRequest(c, result.Error)
	}

	key := fmt.Sprintf("proofs/%d/%s%s", invoiceID, uuid.New().String(), filepath.Ext(file.Filename))
	proofURL, err := h.storage.UploadBytes(c.Context(), key, result.Content, result.ContentType)
	if err != nil {
		return response.InternalServerError(c, "Failed to store payment proof, please retry")
	}

	invoice, err := h.subscription.AttachProof(c.Context(), uint(invoiceID), user.ID, proofURL, key)
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrInvoiceNotFound):
			return response.NotFound(c, "Invoice not found")
		case errors.Is(err, subscription.ErrInvalidTransition):
			return response.Conflict(c, "Invoice is not awaiting payment")
		default:
			// Upload succeeded but the status flip failed; the proof is
			// stored, so this retry does not need a re-upload
			return response.InternalServerError(c, "Proof stored but invoice update failed, please retry")
		}
	}

	return response.Success(c, invoice)
}

// Confirm handles PUT /api/v1/invoices/:id/confirm (admin only)
func (h *InvoiceHandler) Confirm(c *fiber.Ctx) error {
	admin, ok := middleware.GetUser(c)
	if !ok || admin == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	invoiceID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid invoice id")
	}

	invoice, err := h.subscription.Confirm(c.Context(), uint(invoiceID), admin.ID)
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrInvoiceNotFound):
			return response.NotFound(c, "Invoice not found")
		case errors.Is(err, subscription.ErrInvalidTransition):
			return response.Conflict(c, "Invoice is not waiting for confirmation")
		default:
			return response.InternalServerError(c, "Failed to confirm invoice")
		}
	}

	return response.Success(c, invoice)
}

// Reject handles PUT /api/v1/invoices/:id/reject (admin only). The stored
// proof object is deleted so the student can re-upload a fresh one.
func (h *InvoiceHandler) Reject(c *fiber.Ctx) error {
	invoiceID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid invoice id")
	}

	invoice, proofKey, err := h.subscription.Reject(c.Context(), uint(invoiceID))
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrInvoiceNotFound):
			return response.NotFound(c, "Invoice not found")
		case errors.Is(err, subscription.ErrInvalidTransition):
			return response.Conflict(c, "Invoice is not waiting for confirmation")
		default:
			return response.InternalServerError(c, "Failed to reject invoice")
		}
	}

	if proofKey != "" && h.storage != nil {
		// Best effort; an orphaned object is harmless
		h.storage.DeleteFile(c.Context(), proofKey)
	}

	return response.Success(c, invoice)
}

// ListInvoices handles GET /api/v1/invoices (admin only)
func (h *InvoiceHandler) ListInvoices(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	status := c.Query("status", "")

	query := h.db.Model(&model.Invoice{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count invoices")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var invoices []model.Invoice
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&invoices).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch invoices")
	}

	return response.Paginated(c, invoices, pagination)
}

// ListMine handles GET /api/v1/invoices/mine: the student's full invoice
// history, newest first. Each row shows its own status; only the newest
// drives the subscription state.
func (h *InvoiceHandler) ListMine(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var invoices []model.Invoice
	if err := h.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&invoices).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch invoices")
	}

	return response.Success(c, invoices)
}

// GetInvoice handles GET /api/v1/invoices/:id. Students may only read their
// own invoices; admins may read any.
func (h *InvoiceHandler) GetInvoice(c *fiber.Ctx) error {
	invoice, err := h.loadAuthorized(c)
	if err != nil {
		return err
	}
	return response.Success(c, invoice)
}

// InvoiceArtifact is the printable projection handed to the external PDF
// renderer; pure field projection, no business logic.
type InvoiceArtifact struct {
	Number        string `json:"number"`
	IssuedAt      string `json:"issued_at"`
	StudentName   string `json:"student_name"`
	StudentEmail  string `json:"student_email"`
	StudentPhone  string `json:"student_phone"`
	StudentSchool string `json:"student_school"`
	PackageName   string `json:"package_name"`
	PackagePrice  int64  `json:"package_price"`
	AdminFee      int64  `json:"admin_fee"`
	Total         int64  `json:"total"`
	Status        string `json:"status"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// GetArtifact handles GET /api/v1/invoices/:id/artifact
func (h *InvoiceHandler) GetArtifact(c *fiber.Ctx) error {
	invoice, err := h.loadAuthorized(c)
	if err != nil {
		return err
	}

	artifact := InvoiceArtifact{
		Number:        invoice.Number,
		IssuedAt:      invoice.CreatedAt.Format("2006-01-02"),
		StudentName:   invoice.StudentName,
		StudentEmail:  invoice.StudentEmail,
		StudentPhone:  invoice.StudentPhone,
		StudentSchool: invoice.StudentSchool,
		PackageName:   invoice.PackageName,
		PackagePrice:  invoice.PackagePrice,
		AdminFee:      invoice.AdminFee,
		Total:         invoice.Total,
		Status:        invoice.Status,
	}
	if invoice.ExpiresAt != nil {
		artifact.ExpiresAt = invoice.ExpiresAt.Format("2006-01-02")
	}

	return response.Success(c, artifact)
}

// loadAuthorized fetches the invoice and enforces owner-or-admin access. It
// writes the error response itself and returns it for the caller to return.
func (h *InvoiceHandler) loadAuthorized(c *fiber.Ctx) (*model.Invoice, error) {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return nil, response.Unauthorized(c, "User not authenticated")
	}

	var invoice model.Invoice
	if err := h.db.First(&invoice, c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, response.NotFound(c, "Invoice not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch invoice")
	}

	if user.Role != model.RoleAdmin && invoice.UserID != user.ID {
		return nil, response.Forbidden(c, "You may only view your own invoices")
	}

	return &invoice, nil
}
