package rfq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

const defaultDraftTTL = 30 * 24 * time.Hour

// BlobStore persists opaque per-document blobs.
type BlobStore interface {
	LoadBlob(ctx context.Context, key string) ([]byte, bool, error)
	SaveBlob(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DraftKey(kind, docID string) string
	PaymentTermsKey(kind, docID string) string
}

// DraftStore loads and saves drafts through a BlobStore.
type DraftStore struct {
	blobs BlobStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewDraftStore builds a draft store. ttl <= 0 keeps drafts for 30 days.
func NewDraftStore(blobs BlobStore, ttl time.Duration, logg *logger.Logger) (*DraftStore, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		ttl = defaultDraftTTL
	}
	return &DraftStore{blobs: blobs, ttl: ttl, logg: logg}, nil
}

// Load returns the stored draft. A blob that cannot be decoded is logged and
// treated as an empty draft.
func (s *DraftStore) Load(ctx context.Context, kind enums.DocumentKind, docID string) (Draft, bool, error) {
	raw, found, err := s.blobs.LoadBlob(ctx, s.blobs.DraftKey(kind.String(), docID))
	if err != nil {
		return Draft{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load local draft")
	}
	if !found {
		return NewDraft(), false, nil
	}

	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		warnCtx := s.logg.WithField(ctx, "error", err.Error())
		s.logg.Warn(warnCtx, "discarding malformed local draft")
		return NewDraft(), false, nil
	}
	d.normalize()
	return d, true, nil
}

// Save overwrites the stored draft.
func (s *DraftStore) Save(ctx context.Context, kind enums.DocumentKind, docID string, d Draft) error {
	d.normalize()
	payload, err := json.Marshal(d)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode local draft")
	}
	if err := s.blobs.SaveBlob(ctx, s.blobs.DraftKey(kind.String(), docID), payload, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save local draft")
	}
	return nil
}

// Delete removes the draft blob and, when paymentTerms is set, the payment
// terms blob of the same document.
func (s *DraftStore) Delete(ctx context.Context, kind enums.DocumentKind, docID string, paymentTerms bool) error {
	var errs error
	if err := s.blobs.Del(ctx, s.blobs.DraftKey(kind.String(), docID)); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete draft blob: %w", err))
	}
	if paymentTerms {
		if err := s.blobs.Del(ctx, s.blobs.PaymentTermsKey(kind.String(), docID)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete payment terms blob: %w", err))
		}
	}
	return errs
}
