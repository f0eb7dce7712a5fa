package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/KhanhMinhDz/CourseHub-Project/core/attendance"
	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

const (
	sheetName = "Grades"

	colorPresent  = "C6EFCE"
	colorAbsent   = "FFC7CE"
	colorNoRecord = "D9D9D9"
	colorHeader   = "DDEBF7"
)

const timeLayout = "2006-01-02 15:04"

// FileName is the download name of a classroom export with the given extension.
func FileName(c classroom.ClassRoom, kind, ext string) string {
	return fmt.Sprintf("classroom_%d_%s.%s", c.ID, kind, ext)
}

// WriteXLSX writes the report as a spreadsheet: one row per student, one column per session,
// one per assignment and the average last. Attendance cells are colored.
func WriteXLSX(r GradeReport, w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	header := []interface{}{"Student", "Email"}
	for _, s := range r.Sessions {
		header = append(header, "Attendance "+s.CreatedAt.Format(timeLayout))
	}
	for _, a := range r.Assignments {
		header = append(header, a.Title)
	}
	header = append(header, "Average")
	if err := setRow(f, 1, header); err != nil {
		return err
	}
	lastCol := len(header)
	if err := styleRange(f, 1, 1, lastCol, 1, styles.header); err != nil {
		return err
	}

	for i, row := range r.Rows {
		rowNum := i + 2
		values := []interface{}{row.Name, row.Email}
		for _, st := range row.Attendance {
			values = append(values, st)
		}
		for _, cell := range row.Assignments {
			switch {
			case cell.Score != nil:
				values = append(values, *cell.Score)
			case cell.Submitted:
				values = append(values, "submitted")
			default:
				values = append(values, "")
			}
		}
		if row.Average != nil {
			values = append(values, *row.Average)
		} else {
			values = append(values, "")
		}
		if err := setRow(f, rowNum, values); err != nil {
			return err
		}

		for j, st := range row.Attendance {
			style := styles.noRecord
			switch st {
			case Present:
				style = styles.present
			case Absent:
				style = styles.absent
			}
			col := j + 3
			if err := styleRange(f, col, rowNum, col, rowNum, style); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "B", 28); err != nil {
		return errors.Wrap(err, "setting column width")
	}
	if lastCol > 2 {
		last, _ := excelize.ColumnNumberToName(lastCol)
		if err := f.SetColWidth(sheetName, "C", last, 18); err != nil {
			return errors.Wrap(err, "setting column width")
		}
	}
	return errors.Wrap(f.Write(w), "writing spreadsheet")
}

type sheetStyles struct {
	header, present, absent, noRecord int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}
	var st sheetStyles
	var err error
	if st.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Fill: fill(colorHeader)}); err != nil {
		return st, errors.Wrap(err, "creating header style")
	}
	if st.present, err = f.NewStyle(&excelize.Style{Fill: fill(colorPresent)}); err != nil {
		return st, errors.Wrap(err, "creating present style")
	}
	if st.absent, err = f.NewStyle(&excelize.Style{Fill: fill(colorAbsent)}); err != nil {
		return st, errors.Wrap(err, "creating absent style")
	}
	if st.noRecord, err = f.NewStyle(&excelize.Style{Fill: fill(colorNoRecord)}); err != nil {
		return st, errors.Wrap(err, "creating no record style")
	}
	return st, nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrap(err, "computing cell name")
	}
	return errors.Wrap(f.SetSheetRow(sheetName, cell, &values), "writing row")
}

func styleRange(f *excelize.File, col1, row1, col2, row2, style int) error {
	from, err := excelize.CoordinatesToCellName(col1, row1)
	if err != nil {
		return errors.Wrap(err, "computing cell name")
	}
	to, err := excelize.CoordinatesToCellName(col2, row2)
	if err != nil {
		return errors.Wrap(err, "computing cell name")
	}
	return errors.Wrap(f.SetCellStyle(sheetName, from, to, style), "styling cells")
}

// RosterLine is one line of the enrollments CSV.
type RosterLine struct {
	Student    string `csv:"Student"`
	Email      string `csv:"Email"`
	ClassRoom  string `csv:"Classroom"`
	EnrolledAt string `csv:"Enrolled At"`
}

// WriteRosterCSV writes every enrollment of every classroom. Admins only.
func (svc *Service) WriteRosterCSV(ctx context.Context, p user.Principal, w io.Writer) error {
	enrs, err := svc.classes.AllEnrollments(ctx, p)
	if err != nil {
		return err
	}
	lines := make([]*RosterLine, 0, len(enrs))
	for _, e := range enrs {
		lines = append(lines, &RosterLine{
			Student:    e.StudentName,
			Email:      e.StudentEmail,
			ClassRoom:  e.ClassTitle,
			EnrolledAt: e.EnrolledAt.Format(time.RFC3339),
		})
	}
	return errors.Wrap(gocsv.Marshal(&lines, w), "writing roster csv")
}

// SessionLine is one line of the attendance summary CSV.
type SessionLine struct {
	SessionID int64  `csv:"Session"`
	OpenedAt  string `csv:"Opened At"`
	ClosesAt  string `csv:"Closes At"`
	State     string `csv:"State"`
	Total     int    `csv:"Students"`
	Present   int    `csv:"Present"`
	Absent    int    `csv:"Absent"`
}

func sessionLines(sums []attendance.Summary) []*SessionLine {
	lines := make([]*SessionLine, 0, len(sums))
	for _, s := range sums {
		lines = append(lines, &SessionLine{
			SessionID: s.ID,
			OpenedAt:  s.CreatedAt.Format(time.RFC3339),
			ClosesAt:  s.CloseAt.Format(time.RFC3339),
			State:     s.State,
			Total:     s.Total,
			Present:   s.Present,
			Absent:    s.Absent,
		})
	}
	return lines
}

// WriteAttendanceCSV writes the session totals of a classroom.
func (svc *Service) WriteAttendanceCSV(ctx context.Context, p user.Principal, classID int64, w io.Writer) error {
	sums, err := svc.attendance.Sessions(ctx, p, classID)
	if err != nil {
		return err
	}
	return errors.Wrap(gocsv.Marshal(sessionLines(sums), w), "writing attendance csv")
}
