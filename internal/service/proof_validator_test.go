package service

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sports-academy-api/internal/dto"
	appErrors "github.com/noah-isme/sports-academy-api/pkg/errors"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	pdfBytes = []byte("%PDF-1.4\n%fake pdf body\n")
)

func TestProofValidatorReference(t *testing.T) {
	v := NewProofValidator(0, nil)
	assert.NoError(t, v.ValidateReference("123456789012"))
	for _, ref := range []string{"", "12345678901", "1234567890123", "12345678901a", " 123456789012"} {
		assert.True(t, errors.Is(v.ValidateReference(ref), appErrors.ErrInvalidReferenceFormat), ref)
	}
}

func TestProofValidatorAcceptsKnownTypes(t *testing.T) {
	v := NewProofValidator(0, []string{"image/png", "image/jpeg", "image/webp", "application/pdf"})

	mime, ext, err := v.ValidateProof(&dto.ProofUpload{Filename: "Receipt.PNG", Size: int64(len(pngBytes)), Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, ".png", ext)

	mime, _, err = v.ValidateProof(&dto.ProofUpload{Filename: "transfer.pdf", Data: pdfBytes})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mime)
}

func TestProofValidatorRejections(t *testing.T) {
	v := NewProofValidator(5*1024*1024, []string{"image/png", "application/pdf"})

	cases := []struct {
		name  string
		proof *dto.ProofUpload
		err   *appErrors.Error
	}{
		{"missing", nil, appErrors.ErrValidation},
		{"too large", &dto.ProofUpload{Filename: "a.png", Size: 5*1024*1024 + 1, Data: pngBytes}, appErrors.ErrFileTooLarge},
		{"unknown extension", &dto.ProofUpload{Filename: "a.gif", Data: pngBytes}, appErrors.ErrInvalidFileType},
		{"extension mismatch", &dto.ProofUpload{Filename: "a.pdf", Data: pngBytes}, appErrors.ErrInvalidFileType},
		{"not allowed by config", &dto.ProofUpload{Filename: "a.jpg", Data: []byte("\xff\xd8\xff\xe0 jpeg body")}, appErrors.ErrInvalidFileType},
		{"plain text", &dto.ProofUpload{Filename: "a.png", Data: []byte("hello")}, appErrors.ErrInvalidFileType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := v.ValidateProof(tc.proof)
			assert.True(t, errors.Is(err, tc.err), "got %v", err)
		})
	}
}
