package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

// RawStore is the generic document API of the remote store.
type RawStore interface {
	GetDoc(ctx context.Context, doctype, name string) (json.RawMessage, error)
	UpdateDoc(ctx context.Context, doctype, name string, fields map[string]any) (json.RawMessage, error)
	CreateDoc(ctx context.Context, doctype string, fields map[string]any) (json.RawMessage, error)
}

// Store is the typed document port used by the RFQ core.
type Store interface {
	Get(ctx context.Context, kind enums.DocumentKind, name string) (Document, error)
	Update(ctx context.Context, kind enums.DocumentKind, name string, patch Patch) error
	CreateComment(ctx context.Context, comment Comment) error
}

type statusCoder interface {
	StatusCode() int
}

// Repository adapts a RawStore to Store, normalizing every payload it reads.
type Repository struct {
	raw            RawStore
	catalog        Catalog
	commentDoctype string
	logg           *logger.Logger
}

// RepositoryParams configure a Repository.
type RepositoryParams struct {
	Raw            RawStore
	Catalog        Catalog
	CommentDoctype string
	Logger         *logger.Logger
}

// NewRepository builds a repository.
func NewRepository(params RepositoryParams) (*Repository, error) {
	if params.Raw == nil {
		return nil, fmt.Errorf("raw store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Catalog.IsZero() {
		params.Catalog = NewCatalog("", "")
	}
	if params.CommentDoctype == "" {
		params.CommentDoctype = DefaultCommentDoctype
	}
	return &Repository{
		raw:            params.Raw,
		catalog:        params.Catalog,
		commentDoctype: params.CommentDoctype,
		logg:           params.Logger,
	}, nil
}

// Get loads and normalizes a document.
func (r *Repository) Get(ctx context.Context, kind enums.DocumentKind, name string) (Document, error) {
	variant, err := r.catalog.Variant(kind)
	if err != nil {
		return Document{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported document kind")
	}
	raw, err := r.raw.GetDoc(ctx, variant.Doctype, name)
	if err != nil {
		return Document{}, mapRemoteError(err, "load document")
	}
	normalized, err := Normalize(variant, raw)
	if err != nil {
		return Document{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode document")
	}
	if len(normalized.Warnings) > 0 {
		warnCtx := r.logg.WithFields(ctx, map[string]any{"warnings": normalized.Warnings})
		r.logg.Warn(warnCtx, "document fields recovered during normalization")
	}
	doc := normalized.Document
	if doc.Name == "" {
		doc.Name = name
	}
	return doc, nil
}

// Update applies a partial update. The store applies all fields or none.
func (r *Repository) Update(ctx context.Context, kind enums.DocumentKind, name string, patch Patch) error {
	if patch.IsEmpty() {
		return nil
	}
	variant, err := r.catalog.Variant(kind)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported document kind")
	}
	if _, err := r.raw.UpdateDoc(ctx, variant.Doctype, name, patch.Fields(variant)); err != nil {
		return mapRemoteError(err, "update document")
	}
	return nil
}

// CreateComment attaches a comment document to its reference.
func (r *Repository) CreateComment(ctx context.Context, comment Comment) error {
	variant, err := r.catalog.Variant(comment.ReferenceKind)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported document kind")
	}
	fields := map[string]any{
		"comment_type":      "Comment",
		"reference_doctype": variant.Doctype,
		"reference_name":    comment.ReferenceName,
		"subject":           comment.Subject,
		"content":           comment.Content,
	}
	if comment.CommentBy != "" {
		fields["comment_by"] = comment.CommentBy
	}
	if _, err := r.raw.CreateDoc(ctx, r.commentDoctype, fields); err != nil {
		return mapRemoteError(err, "create comment")
	}
	return nil
}

func mapRemoteError(err error, msg string) error {
	var sc statusCoder
	if errors.As(err, &sc) {
		switch sc.StatusCode() {
		case http.StatusNotFound:
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "document not found")
		case http.StatusConflict, http.StatusExpectationFailed:
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "document was modified by someone else")
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
