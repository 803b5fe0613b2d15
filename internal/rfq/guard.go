package rfq

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
)

const defaultInFlightTTL = 30 * time.Second

// Locker claims short-lived exclusive keys.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
	Locked(ctx context.Context, key string) (bool, error)
	InFlightKey(kind, docID, action string) string
}

// Guard prevents a second identical remote-writing transition from starting
// while one is outstanding on the same document.
type Guard struct {
	locker Locker
	ttl    time.Duration
}

// NewGuard builds a guard. ttl bounds how long a crashed holder blocks others.
func NewGuard(locker Locker, ttl time.Duration) (*Guard, error) {
	if locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if ttl <= 0 {
		ttl = defaultInFlightTTL
	}
	return &Guard{locker: locker, ttl: ttl}, nil
}

// Do runs fn while holding the (document, action) key.
func (g *Guard) Do(ctx context.Context, kind enums.DocumentKind, docID string, action enums.RFQTransition, fn func(context.Context) error) error {
	key := g.locker.InFlightKey(kind.String(), docID, action.String())
	ok, err := g.locker.AcquireLock(ctx, key, g.ttl)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire in-flight guard")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "an identical update is already in progress").
			WithDetails(map[string]any{"action": action})
	}
	defer func() { _ = g.locker.ReleaseLock(context.WithoutCancel(ctx), key) }()
	return fn(ctx)
}

// Updating reports whether any remote-writing transition is in flight for the document.
func (g *Guard) Updating(ctx context.Context, kind enums.DocumentKind, docID string) (bool, error) {
	for _, action := range guardedTransitions {
		locked, err := g.locker.Locked(ctx, g.locker.InFlightKey(kind.String(), docID, action.String()))
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read in-flight guard")
		}
		if locked {
			return true, nil
		}
	}
	return false, nil
}

var guardedTransitions = []enums.RFQTransition{
	enums.RFQTransitionView,
	enums.RFQTransitionProceed,
	enums.RFQTransitionRevert,
	enums.RFQTransitionSubmit,
}
