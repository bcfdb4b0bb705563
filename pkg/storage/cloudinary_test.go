package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	params    uploader.UploadParams
	result    *uploader.UploadResult
	err       error
	destroyed string
}

func (f *fakeUploader) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	f.params = params
	return f.result, f.err
}

func (f *fakeUploader) Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	f.destroyed = params.PublicID
	return &uploader.DestroyResult{Result: "ok"}, nil
}

func TestCloudinaryPutUsesRawForPDF(t *testing.T) {
	up := &fakeUploader{result: &uploader.UploadResult{PublicID: "payment-proofs/abc", SecureURL: "https://res/abc.pdf", Bytes: 10}}
	store := newCloudinaryStorage(up, "")

	obj, err := store.Put(context.Background(), "proofs/abc.pdf", "application/pdf", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "raw", up.params.ResourceType)
	assert.Equal(t, "abc", up.params.PublicID)
	assert.Equal(t, "payment-proofs", up.params.Folder)
	assert.Equal(t, "payment-proofs/abc", obj.Ref)
	assert.Equal(t, "https://res/abc.pdf", obj.URL)

	require.NoError(t, store.Delete(context.Background(), obj.Ref))
	assert.Equal(t, "payment-proofs/abc", up.destroyed)
}

func TestCloudinaryPutSurfacesAPIError(t *testing.T) {
	up := &fakeUploader{result: &uploader.UploadResult{Error: api.ErrorResp{Message: "invalid signature"}}}
	_, err := newCloudinaryStorage(up, "f").Put(context.Background(), "a.png", "image/png", strings.NewReader("x"))
	require.ErrorContains(t, err, "invalid signature")

	up = &fakeUploader{err: errors.New("dial tcp")}
	_, err = newCloudinaryStorage(up, "f").Put(context.Background(), "a.png", "image/png", strings.NewReader("x"))
	require.Error(t, err)
}
