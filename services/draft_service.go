package services

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/database"
	"github.com/yashrajoria/storefront-bff/logger"
	"github.com/yashrajoria/storefront-bff/models"
	aws_pkg "github.com/yashrajoria/storefront-bff/pkg/aws"
)

// MediaPresigner issues upload URLs. *aws.S3Presigner satisfies it.
type MediaPresigner interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, map[string]string, error)
}

// DraftService autosaves unfinished forms per device.
type DraftService interface {
	Save(ctx context.Context, deviceID, form string, payload json.RawMessage) (*models.Draft, *apperrors.Error)
	Restore(ctx context.Context, deviceID, form string) (*models.Draft, *apperrors.Error)
	Discard(ctx context.Context, deviceID, form string) *apperrors.Error
	MediaUploadURL(ctx context.Context, deviceID, form string, req *models.MediaUploadRequest) (*models.MediaUpload, *apperrors.Error)
}

type draftServiceImpl struct {
	store     database.DeviceStore
	presigner MediaPresigner
	maxAge    time.Duration
	urlExpiry time.Duration
	validate  *validator.Validate
	metrics   aws_pkg.MetricsRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewDraftService creates a DraftService. presigner may be nil, in which
// case media uploads are unavailable.
func NewDraftService(store database.DeviceStore, presigner MediaPresigner, maxAge, urlExpiry time.Duration, metrics aws_pkg.MetricsRecorder, logger *zap.Logger) DraftService {
	if metrics == nil {
		metrics = aws_pkg.NopMetrics{}
	}
	return &draftServiceImpl{
		store:     store,
		presigner: presigner,
		maxAge:    maxAge,
		urlExpiry: urlExpiry,
		validate:  validator.New(),
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

func (d *draftServiceImpl) checkForm(deviceID, form string) *apperrors.Error {
	if deviceID == "" {
		return apperrors.ErrSessionInitializing
	}
	if err := d.validate.Var(form, "required,max=64,excludesall=:/#"); err != nil {
		return apperrors.Validation(http.StatusBadRequest, "Invalid form name")
	}
	return nil
}

// Save stores payload as the form's draft, keeping media already uploaded.
func (d *draftServiceImpl) Save(ctx context.Context, deviceID, form string, payload json.RawMessage) (*models.Draft, *apperrors.Error) {
	if appErr := d.checkForm(deviceID, form); appErr != nil {
		return nil, appErr
	}
	if !json.Valid(payload) {
		return nil, apperrors.Validation(http.StatusBadRequest, "Draft payload must be valid JSON")
	}

	existing, err := d.store.GetDraft(ctx, deviceID, form)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	draft := &models.Draft{Form: form, Payload: payload, SavedAt: d.now().UTC()}
	if existing != nil {
		draft.Media = existing.Media
	}
	if err := d.store.SaveDraft(ctx, deviceID, draft); err != nil {
		return nil, apperrors.Storage(err)
	}

	_ = d.metrics.RecordCount(ctx, aws_pkg.MetricDraftsSaved, map[string]string{"form": form})
	return draft, nil
}

// Restore returns the form's draft. Drafts older than the max age are
// deleted and reported as missing.
func (d *draftServiceImpl) Restore(ctx context.Context, deviceID, form string) (*models.Draft, *apperrors.Error) {
	if appErr := d.checkForm(deviceID, form); appErr != nil {
		return nil, appErr
	}

	draft, err := d.store.GetDraft(ctx, deviceID, form)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if draft == nil {
		return nil, apperrors.NotFound("No saved draft")
	}

	if d.maxAge > 0 && d.now().Sub(draft.SavedAt) > d.maxAge {
		if err := d.store.DeleteDraft(ctx, deviceID, form); err != nil {
			d.logger.Warn("failed to delete stale draft",
				zap.String("request_id", logger.RequestID(ctx)),
				zap.String("form", form),
				zap.Error(err),
			)
		}
		return nil, apperrors.NotFound("No saved draft")
	}
	return draft, nil
}

func (d *draftServiceImpl) Discard(ctx context.Context, deviceID, form string) *apperrors.Error {
	if appErr := d.checkForm(deviceID, form); appErr != nil {
		return appErr
	}
	if err := d.store.DeleteDraft(ctx, deviceID, form); err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

// MediaUploadURL presigns an upload for a product image and records the
// object key on the form's draft, creating the draft if needed.
func (d *draftServiceImpl) MediaUploadURL(ctx context.Context, deviceID, form string, req *models.MediaUploadRequest) (*models.MediaUpload, *apperrors.Error) {
	if appErr := d.checkForm(deviceID, form); appErr != nil {
		return nil, appErr
	}
	if d.presigner == nil {
		return nil, apperrors.New(http.StatusServiceUnavailable, apperrors.KindInternal, "Media uploads are not configured", nil)
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		return nil, apperrors.Validation(http.StatusBadRequest, "Only image uploads are allowed")
	}

	key := path.Join("drafts", deviceID, form, uuid.NewString()+strings.ToLower(path.Ext(req.Filename)))
	url, headers, err := d.presigner.PresignPut(ctx, key, req.ContentType, d.urlExpiry)
	if err != nil {
		d.logger.Error("failed to presign media upload",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, apperrors.Network(err)
	}

	draft, err := d.store.GetDraft(ctx, deviceID, form)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if draft == nil {
		draft = &models.Draft{Form: form, Payload: json.RawMessage(`{}`)}
	}
	draft.Media = append(draft.Media, key)
	draft.SavedAt = d.now().UTC()
	if err := d.store.SaveDraft(ctx, deviceID, draft); err != nil {
		return nil, apperrors.Storage(err)
	}

	return &models.MediaUpload{
		URL:       url,
		Key:       key,
		Headers:   headers,
		ExpiresIn: int64(d.urlExpiry.Seconds()),
	}, nil
}
