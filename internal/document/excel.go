package document

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WorkbookToMarkdown renders every sheet of a workbook as a markdown table,
// the text shape the extraction oracle is prompted for. The first fully
// populated row of each sheet is taken as the header; leading banner rows
// above it are dropped.
func WorkbookToMarkdown(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		table := sheetToMarkdown(rows)
		if table == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s", sheet, table)
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("workbook contains no table data")
	}
	return b.String(), nil
}

func sheetToMarkdown(rows [][]string) string {
	start, width := detectTable(rows)
	if start < 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = strings.TrimSpace(cells[i])
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[start])
	b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, row := range rows[start+1:] {
		if rowEmpty(row) {
			continue
		}
		writeRow(row)
	}
	return b.String()
}

// detectTable finds the first row where every column up to the widest
// populated extent is filled, and returns it with the table width.
func detectTable(rows [][]string) (start, width int) {
	width = 0
	for _, row := range rows {
		if w := populatedWidth(row); w > width {
			width = w
		}
	}
	if width == 0 {
		return -1, 0
	}
	for i, row := range rows {
		if populatedWidth(row) < width {
			continue
		}
		full := true
		for j := 0; j < width; j++ {
			if strings.TrimSpace(row[j]) == "" {
				full = false
				break
			}
		}
		if full {
			return i, width
		}
	}
	return -1, 0
}

func populatedWidth(row []string) int {
	w := 0
	for i, cell := range row {
		if strings.TrimSpace(cell) != "" {
			w = i + 1
		}
	}
	return w
}

func rowEmpty(row []string) bool {
	return populatedWidth(row) == 0
}
