package service

import (
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/noah-isme/sports-academy-api/internal/dto"
	appErrors "github.com/noah-isme/sports-academy-api/pkg/errors"
)

var bankReferencePattern = regexp.MustCompile(`^\d{12}$`)

var proofExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// ProofValidator checks bank transfer submissions locally, before anything is stored or sent.
type ProofValidator struct {
	maxBytes int64
	allowed  map[string]bool
}

// NewProofValidator constructs a validator. An empty allowed list accepts every known proof type.
func NewProofValidator(maxBytes int64, allowed []string) *ProofValidator {
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	set := make(map[string]bool, len(allowed))
	for _, mime := range allowed {
		set[strings.ToLower(strings.TrimSpace(mime))] = true
	}
	if len(set) == 0 {
		for _, mime := range proofExtensions {
			set[mime] = true
		}
	}
	return &ProofValidator{maxBytes: maxBytes, allowed: set}
}

// MaxBytes is the upload size limit.
func (v *ProofValidator) MaxBytes() int64 {
	return v.maxBytes
}

// ValidateReference checks the 12 digit bank reference.
func (v *ProofValidator) ValidateReference(ref string) error {
	if !bankReferencePattern.MatchString(ref) {
		return appErrors.Clone(appErrors.ErrInvalidReferenceFormat, "")
	}
	return nil
}

// ValidateProof checks presence, size and type of the proof. It returns the sniffed content type
// and the canonical file extension.
func (v *ProofValidator) ValidateProof(proof *dto.ProofUpload) (string, string, error) {
	if proof == nil || len(proof.Data) == 0 {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "payment proof is required")
	}
	size := proof.Size
	if int64(len(proof.Data)) > size {
		size = int64(len(proof.Data))
	}
	if size > v.maxBytes {
		return "", "", appErrors.WithDetails(appErrors.ErrFileTooLarge, "maxBytes", v.maxBytes)
	}

	ext := strings.ToLower(filepath.Ext(proof.Filename))
	expected, known := proofExtensions[ext]
	if !known {
		return "", "", appErrors.WithDetails(appErrors.ErrInvalidFileType, "extension", ext)
	}
	sniffed := http.DetectContentType(proof.Data)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	if sniffed != expected || !v.allowed[sniffed] {
		return "", "", appErrors.WithDetails(appErrors.ErrInvalidFileType, "contentType", sniffed)
	}
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	return sniffed, ext, nil
}
