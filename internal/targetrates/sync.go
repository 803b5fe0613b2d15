package targetrates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/procurement-backend/pkg/frappe"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/metrics"
	"github.com/angelmondragon/procurement-backend/pkg/numeric"
)

const (
	SyncJobName        = "target_rate_sync"
	defaultSyncDoctype = "Target Rates"
	defaultPageSize    = 500
	sourceFrappe       = "frappe"
)

// Lister pages through documents of one doctype.
type Lister interface {
	ListDocs(ctx context.Context, doctype string, query frappe.ListQuery) ([]json.RawMessage, error)
}

// Upserter stores reference rates.
type Upserter interface {
	Upsert(ctx context.Context, rates []Rate) (int, error)
}

// SyncJobParams configure the import job.
type SyncJobParams struct {
	Source   Lister
	Store    Upserter
	Doctype  string
	PageSize int
	Metrics  *metrics.JobMetrics
	Logger   *logger.Logger
}

// SyncJob copies reference rates from the ERP into the local table.
type SyncJob struct {
	source   Lister
	store    Upserter
	doctype  string
	pageSize int
	metrics  *metrics.JobMetrics
	logg     *logger.Logger
}

// NewSyncJob validates params and builds the job.
func NewSyncJob(params SyncJobParams) (*SyncJob, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("rate source required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("rate store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(params.Doctype) == "" {
		params.Doctype = defaultSyncDoctype
	}
	if params.PageSize <= 0 {
		params.PageSize = defaultPageSize
	}
	return &SyncJob{
		source:   params.Source,
		store:    params.Store,
		doctype:  params.Doctype,
		pageSize: params.PageSize,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Name implements cron.Job.
func (j *SyncJob) Name() string { return SyncJobName }

// Run imports every page. Rows without item id or unit are skipped; a row
// whose rate is unparsable is stored with no rate.
func (j *SyncJob) Run(ctx context.Context) error {
	start := time.Now()
	written, skipped := 0, 0
	for offset := 0; ; offset += j.pageSize {
		rows, err := j.source.ListDocs(ctx, j.doctype, frappe.ListQuery{
			Fields:  []string{"item_id", "unit", "rate"},
			Limit:   j.pageSize,
			Offset:  offset,
			OrderBy: "item_id asc",
		})
		if err != nil {
			return fmt.Errorf("list %s at offset %d: %w", j.doctype, offset, err)
		}

		rates := make([]Rate, 0, len(rows))
		for _, raw := range rows {
			rate, ok := decodeRow(raw)
			if !ok {
				skipped++
				continue
			}
			rates = append(rates, rate)
		}
		n, err := j.store.Upsert(ctx, rates)
		if err != nil {
			return err
		}
		written += n

		if len(rows) < j.pageSize {
			break
		}
	}

	j.metrics.AddRecords(SyncJobName, "written", written)
	j.metrics.AddRecords(SyncJobName, "skipped", skipped)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"written":     written,
		"skipped":     skipped,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if skipped > 0 {
		j.logg.Warn(logCtx, "target rate rows skipped during sync")
	}
	j.logg.Info(logCtx, "target rates synced")
	return nil
}

func decodeRow(raw json.RawMessage) (Rate, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var row map[string]any
	if err := dec.Decode(&row); err != nil {
		return Rate{}, false
	}
	itemID, _ := row["item_id"].(string)
	unit, _ := row["unit"].(string)
	if strings.TrimSpace(itemID) == "" || strings.TrimSpace(unit) == "" {
		return Rate{}, false
	}
	out := Rate{ItemID: itemID, Unit: unit, Source: sourceFrappe}
	if v, ok := numeric.ParseStrict(row["rate"]); ok {
		out.Rate = &v
	}
	return out, true
}
