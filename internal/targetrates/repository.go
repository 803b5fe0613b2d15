package targetrates

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/procurement-backend/internal/benchmark"
	"github.com/angelmondragon/procurement-backend/pkg/db"
	"github.com/angelmondragon/procurement-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
)

const (
	upsertBatchSize     = 200
	uniqueItemUnitIndex = "ux_target_rates_item_unit"
)

// Rate is one reference rate to store. A nil Rate is stored as NULL.
type Rate struct {
	ItemID string
	Unit   string
	Rate   *decimal.Decimal
	Source string
}

// Repository persists reference rates.
type Repository struct {
	gdb *gorm.DB
}

// NewRepository binds a repository to conn.
func NewRepository(conn *gorm.DB) (*Repository, error) {
	if conn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database connection required")
	}
	return &Repository{gdb: conn}, nil
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return r.gdb
	}
	return r.gdb.WithContext(ctx)
}

// FindByItemIDs returns every stored rate for the given items, ordered by item
// then unit.
func (r *Repository) FindByItemIDs(ctx context.Context, itemIDs []string) ([]benchmark.Record, error) {
	ids := uniqueIDs(itemIDs)
	if len(ids) == 0 {
		return []benchmark.Record{}, nil
	}
	var rows []models.TargetRate
	if err := r.conn(ctx).
		Where("item_id IN ?", ids).
		Order("item_id ASC, unit ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "query target rates")
	}
	out := make([]benchmark.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRecord(row))
	}
	return out, nil
}

// Upsert inserts rates or updates the existing (item, unit) rows. It returns
// the number of rows written.
func (r *Repository) Upsert(ctx context.Context, rates []Rate) (int, error) {
	rows := make([]models.TargetRate, 0, len(rates))
	now := time.Now().UTC()
	for _, rate := range rates {
		itemID, unit := strings.TrimSpace(rate.ItemID), strings.TrimSpace(rate.Unit)
		if itemID == "" || unit == "" {
			continue
		}
		row := models.TargetRate{
			ID:        uuid.New(),
			ItemID:    itemID,
			Unit:      unit,
			Source:    rate.Source,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if rate.Rate != nil {
			row.Rate = decimal.NewNullDecimal(*rate.Rate)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	err := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "unit"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "source", "updated_at"}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
	if err != nil {
		if db.IsUniqueViolation(err, uniqueItemUnitIndex) {
			return 0, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "duplicate (item, unit) pair in rate batch")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert target rates")
	}
	return len(rows), nil
}

func toRecord(row models.TargetRate) benchmark.Record {
	rec := benchmark.Record{ItemID: row.ItemID, Unit: row.Unit}
	if row.Rate.Valid {
		rec.Rate = row.Rate.Decimal
	}
	return rec
}

func uniqueIDs(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
