package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func newLocal(t *testing.T, maxBytes int64) *Local {
	t.Helper()
	store, err := NewLocal(t.TempDir(), "/files/", maxBytes)
	require.NoError(t, err)
	return store
}

func TestLocalUploadOpenDelete(t *testing.T) {
	store := newLocal(t, 1<<20)
	ctx := context.Background()

	obj, err := store.Upload(ctx, samplePDF, "invoices", PDFTypes)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.FileName, "invoices/"))
	assert.True(t, strings.HasSuffix(obj.FileName, ".pdf"))
	assert.Equal(t, "/files/"+obj.FileName, obj.URL)
	assert.Equal(t, "application/pdf", obj.MimeType)
	assert.Equal(t, int64(len(samplePDF)), obj.Size)

	data, err := store.Open(ctx, obj.FileName)
	require.NoError(t, err)
	assert.Equal(t, samplePDF, data)

	require.NoError(t, store.Delete(ctx, obj.FileName))
	_, err = store.Open(ctx, obj.FileName)
	require.ErrorIs(t, err, ErrNotFound)

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, obj.FileName))
}

func TestLocalUploadRejectsBeforeWriting(t *testing.T) {
	store := newLocal(t, 16)
	ctx := context.Background()

	_, err := store.Upload(ctx, samplePDF, "invoices", PDFTypes)
	require.ErrorIs(t, err, ErrTooLarge)
	require.ErrorIs(t, err, httpx.ErrValidation)

	store = newLocal(t, 1<<20)
	_, err = store.Upload(ctx, []byte("just some plain text"), "challans", PDFTypes)
	require.ErrorIs(t, err, ErrMimeNotAllowed)

	_, err = store.Upload(ctx, nil, "challans", PDFTypes)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestLocalRejectsTraversal(t *testing.T) {
	store := newLocal(t, 0)
	_, err := store.Open(context.Background(), "../etc/passwd")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUploadFolderIsConfined(t *testing.T) {
	store := newLocal(t, 0)
	obj, err := store.Upload(context.Background(), samplePDF, "../../outside", nil)
	require.NoError(t, err)
	assert.False(t, strings.Contains(obj.FileName, ".."))
}

type flakyStore struct {
	Store
	failures int
	calls    int
}

func (f *flakyStore) Delete(ctx context.Context, fileName string) error {
	f.calls++
	if f.calls <= f.failures {
		return ErrStorage
	}
	return nil
}

func TestRetryRemover(t *testing.T) {
	store := &flakyStore{failures: 2}
	remover := NewRetryRemover(store, nil).WithBackoff(time.Millisecond)
	require.NoError(t, remover.Remove(context.Background(), "invoices/a.pdf"))
	assert.Equal(t, 3, store.calls)

	store = &flakyStore{failures: 5}
	remover = NewRetryRemover(store, nil).WithBackoff(time.Millisecond)
	err := remover.Remove(context.Background(), "invoices/a.pdf")
	require.True(t, errors.Is(err, ErrStorage))
	assert.Equal(t, 3, store.calls)

	require.NoError(t, remover.Remove(context.Background(), ""))
}
