package assignment

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
)

var (
	// ErrUnsupportedFormat is returned for question files that are neither CSV nor spreadsheets.
	ErrUnsupportedFormat = core.NewValidationError(
		errors.New("unsupported file format: upload a .csv or .xlsx file"),
		core.FieldError{Field: "file", Error: "unsupported file format: upload a .csv or .xlsx file"},
	)

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// File kinds accepted by ParseQuestions
const (
	KindCSV         = "csv"
	KindSpreadsheet = "spreadsheet"
)

// FileKind returns the question file kind of filename or "" if unsupported.
func FileKind(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return KindCSV
	case ".xlsx", ".xlsm":
		return KindSpreadsheet
	default:
		return ""
	}
}

// ParseQuestions reads one question per row: content first, then the options,
// then the correct answers and last whether several answers are allowed.
// Rows with fewer than 3 columns or a blank question cell are skipped. Empty input yields no questions.
func ParseQuestions(filename string, data []byte) ([]Question, error) {
	kind := FileKind(filename)
	if kind == "" {
		return nil, ErrUnsupportedFormat
	}
	if len(data) == 0 {
		return []Question{}, nil
	}

	var rows [][]string
	var err error
	switch kind {
	case KindCSV:
		rows, err = readCSVRows(data)
	case KindSpreadsheet:
		rows, err = readSpreadsheetRows(data)
	}
	if err != nil {
		return nil, err
	}

	questions := make([]Question, 0, len(rows))
	for _, row := range rows {
		if q, ok := rowToQuestion(row); ok {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

func readCSVRows(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, core.NewValidationError(
			errors.Wrap(err, "reading csv"),
			core.FieldError{Field: "file", Error: "malformed CSV file: " + err.Error()},
		)
	}
	return rows, nil
}

func readSpreadsheetRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, core.NewValidationError(
			errors.Wrap(err, "opening spreadsheet"),
			core.FieldError{Field: "file", Error: "malformed spreadsheet file"},
		)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, core.NewValidationError(
			errors.Wrap(err, "reading spreadsheet rows"),
			core.FieldError{Field: "file", Error: "malformed spreadsheet file"},
		)
	}
	return rows, nil
}

func rowToQuestion(row []string) (Question, bool) {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = strings.TrimSpace(c)
	}
	n := len(cells)
	if n < 3 || cells[0] == "" {
		return Question{}, false
	}

	options := make([]string, 0, n-3)
	options = append(options, cells[1:n-2]...)
	return Question{
		Content:        cells[0],
		Options:        options,
		CorrectAnswers: cells[n-2],
		AllowMultiple:  parseLooseBool(cells[n-1]),
	}, true
}

// parseLooseBool reads boolean-looking text; anything else is false.
func parseLooseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "yes", "y":
		return true
	}
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
