package pkg

import (
	"encoding/json"
	"strconv"

	"github.com/bimbelkita/bimbel-api/model"
	"github.com/bimbelkita/bimbel-api/utils/response"
	"github.com/bimbelkita/bimbel-api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PackageHandler handles subscription-package catalog requests
type PackageHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewPackageHandler creates a new package handler
func NewPackageHandler(db *gorm.DB) *PackageHandler {
	return &PackageHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// PackageRequest represents the request body for creating/updating a package
type PackageRequest struct {
	Title    string   `json:"title" validate:"required,min=3,max=120"`
	Price    int64    `json:"price" validate:"required,min=0"`
	Features []string `json:"features" validate:"required,min=1,dive,required"`
	Color    string   `json:"color" validate:"omitempty,max=30"`
}

// ListPackages handles GET /api/v1/packages
func (h *PackageHandler) ListPackages(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	query := h.db.Model(&model.Package{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count packages")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var packages []model.Package
	if err := query.Order("price ASC").Limit(limit).Offset(offset).Find(&packages).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch packages")
	}

	return response.Paginated(c, packages, pagination)
}

// GetPackage handles GET /api/v1/packages/:id
func (h *PackageHandler) GetPackage(c *fiber.Ctx) error {
	id := c.Params("id")

	var pkg model.Package
	if err := h.db.First(&pkg, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Package not found")
		}
		return response.InternalServerError(c, "Failed to fetch package")
	}

	return response.Success(c, pkg)
}

// CreatePackage handles POST /api/v1/packages (admin only)
func (h *PackageHandler) CreatePackage(c *fiber.Ctx) error {
	var req PackageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	features, err := json.Marshal(req.Features)
	if err != nil {
		return response.BadRequest(c, "Invalid feature list")
	}

	pkg := model.Package{
		Title:    validation.SanitizeString(req.Title),
		Price:    req.Price,
		Features: features,
		Color:    req.Color,
	}

	if err := h.db.Create(&pkg).Error; err != nil {
		return response.InternalServerError(c, "Failed to create package")
	}

	return response.Created(c, pkg)
}

// UpdatePackage handles PUT /api/v1/packages/:id (admin only).
// Existing invoices keep their snapshot of title/price, so editing a
// package never rewrites billing history.
func (h *PackageHandler) UpdatePackage(c *fiber.Ctx) error {
	id := c.Params("id")

	var pkg model.Package
	if err := h.db.First(&pkg, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Package not found")
		}
		return response.InternalServerError(c, "Failed to fetch package")
	}

	var req PackageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	features, err := json.Marshal(req.Features)
	if err != nil {
		return response.BadRequest(c, "Invalid feature list")
	}

	pkg.Title = validation.SanitizeString(req.Title)
	pkg.Price = req.Price
	pkg.Features = features
	pkg.Color = req.Color

	if err := h.db.Save(&pkg).Error; err != nil {
		return response.InternalServerError(c, "Failed to update package")
	}

	return response.Success(c, pkg)
}

// DeletePackage handles DELETE /api/v1/packages/:id (admin only). Packages
// referenced by invoices are kept so history stays resolvable.
func (h *PackageHandler) DeletePackage(c *fiber.Ctx) error {
	id := c.Params("id")

	var pkg model.Package
	if err := h.db.First(&pkg, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Package not found")
		}
		return response.InternalServerError(c, "Failed to fetch package")
	}

	var invoiceCount int64
	if err := h.db.Model(&model.Invoice{}).Where("package_id = ?", pkg.ID).Count(&invoiceCount).Error; err != nil {
		return response.InternalServerError(c, "Failed to check package usage")
	}
	if invoiceCount > 0 {
		return response.Conflict(c, "Package is referenced by existing invoices and cannot be deleted")
	}

	if err := h.db.Delete(&pkg).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete package")
	}

	return response.SuccessWithMessage(c, "Package deleted", nil)
}
