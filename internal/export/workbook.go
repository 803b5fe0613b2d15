package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/angelmondragon/procurement-backend/internal/rfq"
)

const (
	SummarySheet = "Vendor Summary"
	DelayedSheet = "Delayed Items"
	ContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	summaryHeaders = []string{
		"Vendor", "Item", "Category", "Unit", "Qty", "Rate", "Make",
		"Amount", "Amount incl. GST", "Target Amount", "Lowest Quoted", "Saving/Loss",
	}
	delayedHeaders = []string{"Item", "Category", "Unit", "Qty", "Tax %"}
)

// Filename is the attachment name for a document's summary workbook.
func Filename(view rfq.SummaryView) string {
	return fmt.Sprintf("%s_summary.xlsx", view.DocID)
}

// Workbook renders the vendor-wise summary and the delayed items as two sheets.
func Workbook(view rfq.SummaryView) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(DelayedSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	total, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("total style: %w", err)
	}

	w := &sheetWriter{f: f}
	w.sheet(SummarySheet)
	w.row(header, toAny(summaryHeaders)...)
	for _, vs := range view.Vendors() {
		for _, item := range vs.Items {
			w.row(0,
				vs.VendorName, item.ItemName, item.Category, item.Unit,
				num(item.Quantity), num(item.Quote), item.Make,
				num(item.Amount), num(item.AmountInclTax),
				optional(item.TargetAmount), optional(item.LowestQuotedAmount), num(item.SavingLoss),
			)
		}
		w.row(total, vs.VendorName+" total", "", "", "", "", "", "",
			num(vs.Total), num(vs.TotalInclGst), "", "", num(vs.TotalSavingLoss))
	}
	w.row(total, "Approval total", "", "", "", "", "", "",
		num(view.ApprovalTotalExclGst), num(view.ApprovalTotalInclGst), "", "", num(view.TotalSavingLoss))

	w.sheet(DelayedSheet)
	w.row(header, toAny(delayedHeaders)...)
	for _, item := range view.DelayedItems {
		w.row(0, item.ItemName, item.Category, item.Unit, num(item.Quantity), num(item.Tax))
	}
	if w.err != nil {
		f.Close()
		return nil, w.err
	}

	widen(f, SummarySheet, len(summaryHeaders))
	widen(f, DelayedSheet, len(delayedHeaders))
	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook to out.
func Write(out io.Writer, view rfq.SummaryView) error {
	f, err := Workbook(view)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type sheetWriter struct {
	f    *excelize.File
	name string
	next int
	err  error
}

func (w *sheetWriter) sheet(name string) {
	w.name = name
	w.next = 1
}

func (w *sheetWriter) row(style int, values ...any) {
	if w.err != nil {
		return
	}
	first, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(w.name, first, &values); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", w.name, w.next, err)
		return
	}
	if style != 0 {
		last, _ := excelize.CoordinatesToCellName(len(values), w.next)
		if err := w.f.SetCellStyle(w.name, first, last, style); err != nil {
			w.err = err
			return
		}
	}
	w.next++
}

func widen(f *excelize.File, sheet string, cols int) {
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return
	}
	_ = f.SetColWidth(sheet, "A", last, 18)
}

func num(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

func optional(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return num(*d)
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
