package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/database"
	"github.com/yashrajoria/storefront-bff/models"
)

var mediaRequest = models.MediaUploadRequest{Filename: "Lamp.PNG", ContentType: "image/png"}

func newTestDraftService(presigner MediaPresigner) (*draftServiceImpl, *database.MemoryDeviceStore, *time.Time) {
	store := database.NewMemoryDeviceStore()
	now := time.Date(2026, time.May, 15, 12, 0, 0, 0, time.UTC)
	svc := NewDraftService(store, presigner, 24*time.Hour, 15*time.Minute, nil, zap.NewNop()).(*draftServiceImpl)
	svc.now = func() time.Time { return now }
	return svc, store, &now
}

func TestDraft_SaveAndRestore(t *testing.T) {
	svc, _, _ := newTestDraftService(nil)
	ctx := context.Background()

	saved, appErr := svc.Save(ctx, "dev", "product", json.RawMessage(`{"name":"Lamp","price":"9.99"}`))
	require.Nil(t, appErr)
	assert.Equal(t, "product", saved.Form)

	got, appErr := svc.Restore(ctx, "dev", "product")
	require.Nil(t, appErr)
	assert.JSONEq(t, `{"name":"Lamp","price":"9.99"}`, string(got.Payload))
}

func TestDraft_StaleDraftIsDeleted(t *testing.T) {
	svc, store, now := newTestDraftService(nil)
	ctx := context.Background()

	_, appErr := svc.Save(ctx, "dev", "product", json.RawMessage(`{}`))
	require.Nil(t, appErr)

	*now = now.Add(25 * time.Hour)
	_, appErr = svc.Restore(ctx, "dev", "product")
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.KindNotFound, appErr.Kind)

	left, err := store.GetDraft(ctx, "dev", "product")
	require.NoError(t, err)
	assert.Nil(t, left)
}

func TestDraft_FreshDraftSurvivesJustUnderMaxAge(t *testing.T) {
	svc, _, now := newTestDraftService(nil)
	ctx := context.Background()

	_, _ = svc.Save(ctx, "dev", "product", json.RawMessage(`{}`))
	*now = now.Add(23 * time.Hour)

	_, appErr := svc.Restore(ctx, "dev", "product")
	assert.Nil(t, appErr)
}

func TestDraft_Validation(t *testing.T) {
	svc, _, _ := newTestDraftService(nil)
	ctx := context.Background()

	_, appErr := svc.Save(ctx, "dev", "a/b", json.RawMessage(`{}`))
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)

	_, appErr = svc.Save(ctx, "dev", "product", json.RawMessage(`{broken`))
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)

	_, appErr = svc.Restore(ctx, "dev", "missing")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Code)
}

func TestDraft_MediaUploadRecordsKey(t *testing.T) {
	presigner := &fakePresigner{}
	svc, _, _ := newTestDraftService(presigner)
	ctx := context.Background()

	_, appErr := svc.Save(ctx, "dev", "product", json.RawMessage(`{"name":"Lamp"}`))
	require.Nil(t, appErr)

	upload, appErr := svc.MediaUploadURL(ctx, "dev", "product", &mediaRequest)
	require.Nil(t, appErr)
	assert.True(t, strings.HasPrefix(upload.Key, "drafts/dev/product/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".png"))
	assert.Contains(t, upload.URL, upload.Key)
	assert.Equal(t, int64(900), upload.ExpiresIn)

	// A later autosave keeps the uploaded media.
	_, appErr = svc.Save(ctx, "dev", "product", json.RawMessage(`{"name":"Desk lamp"}`))
	require.Nil(t, appErr)

	draft, appErr := svc.Restore(ctx, "dev", "product")
	require.Nil(t, appErr)
	assert.Equal(t, []string{upload.Key}, draft.Media)
	assert.JSONEq(t, `{"name":"Desk lamp"}`, string(draft.Payload))
}

func TestDraft_MediaUploadErrors(t *testing.T) {
	ctx := context.Background()

	svc, _, _ := newTestDraftService(nil)
	_, appErr := svc.MediaUploadURL(ctx, "dev", "product", &mediaRequest)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Code)

	svc, _, _ = newTestDraftService(&fakePresigner{})
	req := mediaRequest
	req.ContentType = "application/x-sh"
	_, appErr = svc.MediaUploadURL(ctx, "dev", "product", &req)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)

	svc, _, _ = newTestDraftService(&fakePresigner{err: errors.New("no credentials")})
	_, appErr = svc.MediaUploadURL(ctx, "dev", "product", &mediaRequest)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.KindNetwork, appErr.Kind)
}
