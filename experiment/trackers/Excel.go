package trackers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Sheet is the name of the worksheet written by an Excel tracker
const Sheet = "Results"

// Excel tracks each episode as a row of a spreadsheet and saves the
// spreadsheet as an .xlsx workbook
type Excel struct {
	file     *excelize.File
	row      int
	filename string
}

// NewExcel returns a new Excel tracker which saves its workbook at
// filename
func NewExcel(filename string) (*Excel, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(Sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("newexcel: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("newexcel: %w", err)
	}

	header := []interface{}{"Epoch", "MeanCost", "MeanReward", "Epsilon",
		"Steps"}
	if err := f.SetSheetRow(Sheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("newexcel: %w", err)
	}

	return &Excel{file: f, row: 2, filename: filename}, nil
}

// Track writes r as the next row of the sheet
func (e *Excel) Track(r Report) error {
	row := []interface{}{r.Epoch, r.MeanCost, r.MeanReward, r.Epsilon,
		r.Steps}
	cell := fmt.Sprintf("A%d", e.row)
	if err := e.file.SetSheetRow(Sheet, cell, &row); err != nil {
		return fmt.Errorf("track: %w", err)
	}
	e.row++
	return nil
}

// Save writes the workbook to disk. The workbook may be saved more than
// once; each save holds every row tracked so far.
func (e *Excel) Save() error {
	if err := os.MkdirAll(filepath.Dir(e.filename), 0o755); err != nil {
		return fmt.Errorf("save: could not create directory: %w", err)
	}
	if err := e.file.SaveAs(e.filename); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Close releases the resources held by the workbook
func (e *Excel) Close() error {
	return e.file.Close()
}
