package uploads

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Limits defines the validation limits for uploaded files
type Limits struct {
	MaxFileSizeMB int
	MaxPDFPages   int
	KindName      string // For error messages (e.g., "payment proof")
}

// ProofLimits bounds payment-proof uploads: a receipt is one photo or a
// short PDF export from a banking app.
var ProofLimits = Limits{
	MaxFileSizeMB: 10,
	MaxPDFPages:   5,
	KindName:      "payment proof",
}

// ImageLimits bounds question-explanation image uploads
var ImageLimits = Limits{
	MaxFileSizeMB: 5,
	KindName:      "explanation image",
}

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// Result contains the outcome of upload validation
type Result struct {
	Valid       bool
	ContentType string
	Content     []byte
	Error       string
}

// ValidateProof accepts an image or a PDF and runs the matching checks.
func ValidateProof(file *multipart.FileHeader) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == ".pdf" {
		return validatePDF(file, ProofLimits)
	}
	return validateImage(file, ProofLimits)
}

// ValidateImage accepts image uploads only.
func ValidateImage(file *multipart.FileHeader) (*Result, error) {
	return validateImage(file, ImageLimits)
}

func validateImage(file *multipart.FileHeader, limits Limits) (*Result, error) {
	result := &Result{}

	maxSize := int64(limits.MaxFileSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		result.Error = fmt.Sprintf("File size exceeds maximum allowed size of %dMB", limits.MaxFileSizeMB)
		return result, nil
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType, ok := imageExtensions[ext]
	if !ok {
		result.Error = fmt.Sprintf("Unsupported file type for %s: %s", limits.KindName, ext)
		return result, nil
	}

	content, err := readAll(file)
	if err != nil {
		return nil, err
	}

	result.Valid = true
	result.ContentType = contentType
	result.Content = content
	return result, nil
}

func validatePDF(file *multipart.FileHeader, limits Limits) (*Result, error) {
	result := &Result{}

	maxSize := int64(limits.MaxFileSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		result.Error = fmt.Sprintf("File size exceeds maximum allowed size of %dMB", limits.MaxFileSizeMB)
		return result, nil
	}

	content, err := readAll(file)
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		result.Error = "Invalid PDF file: missing PDF header"
		return result, nil
	}

	pageCount, err := pdfPageCount(content)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to read PDF: %v", err)
		return result, nil
	}
	if pageCount == 0 {
		result.Error = "PDF has no pages"
		return result, nil
	}
	if pageCount > limits.MaxPDFPages {
		result.Error = fmt.Sprintf("PDF has %d pages, which exceeds the maximum of %d pages for a %s",
			pageCount, limits.MaxPDFPages, limits.KindName)
		return result, nil
	}

	result.Valid = true
	result.ContentType = "application/pdf"
	result.Content = content
	return result, nil
}

func pdfPageCount(content []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

func readAll(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}
