package shopping

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/fdg312/plateplan/internal/storage"
)

// renderPDF draws the merged rows as a single table. Core fonts only, so
// text outside cp1252 is replaced.
func renderPDF(list storage.ShoppingList, lines []Line, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(list.Name, true)
	pdf.SetCreator("plateplan", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(list.Name))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s, %d items", generatedAt.Format("2006-01-02 15:04 MST"), len(lines)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(110, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 8, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Unit", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for _, l := range lines {
		unit := ""
		if l.Unit != nil {
			unit = *l.Unit
		}
		pdf.CellFormat(110, 7, tr(l.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, formatQty(l.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, tr(unit), "1", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
