package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
)

const (
	classRoomColumns    = `c.id, c.title, c.description, c.enrollment_password_hash, c.instructor_id, c.created_at`
	contentBlockColumns = `id, classroom_id, content, position, created_at, updated_at`
)

type classRoomRow struct {
	ID                     int64       `db:"id"`
	Title                  string      `db:"title"`
	Description            string      `db:"description"`
	EnrollmentPasswordHash []byte      `db:"enrollment_password_hash"`
	InstructorID           null.String `db:"instructor_id"`
	CreatedAt              time.Time   `db:"created_at"`
}

func (r classRoomRow) toClassRoom() classroom.ClassRoom {
	return classroom.ClassRoom{
		ID:                     r.ID,
		Title:                  r.Title,
		Description:            r.Description,
		EnrollmentPasswordHash: r.EnrollmentPasswordHash,
		InstructorID:           r.InstructorID.String,
		CreatedAt:              r.CreatedAt.UTC(),
	}
}

type enrollmentRow struct {
	ID           int64     `db:"id"`
	ClassRoomID  int64     `db:"classroom_id"`
	StudentID    string    `db:"student_id"`
	StudentName  string    `db:"student_name"`
	StudentEmail string    `db:"student_email"`
	ClassTitle   string    `db:"class_title"`
	EnrolledAt   time.Time `db:"enrolled_at"`
}

func (r enrollmentRow) toEnrollment() classroom.Enrollment {
	return classroom.Enrollment{
		ID:           r.ID,
		ClassRoomID:  r.ClassRoomID,
		StudentID:    r.StudentID,
		StudentName:  r.StudentName,
		StudentEmail: r.StudentEmail,
		ClassTitle:   r.ClassTitle,
		EnrolledAt:   r.EnrolledAt.UTC(),
	}
}

type contentBlockRow struct {
	ID          int64     `db:"id"`
	ClassRoomID int64     `db:"classroom_id"`
	Content     string    `db:"content"`
	Position    int       `db:"position"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   null.Time `db:"updated_at"`
}

func (r contentBlockRow) toContentBlock() classroom.ContentBlock {
	b := classroom.ContentBlock{
		ID:          r.ID,
		ClassRoomID: r.ClassRoomID,
		Content:     r.Content,
		Order:       r.Position,
		CreatedAt:   r.CreatedAt.UTC(),
	}
	if r.UpdatedAt.Valid {
		t := r.UpdatedAt.Time.UTC()
		b.UpdatedAt = &t
	}
	return b
}

type classRoomRepository struct {
	baseRepository
}

var _ classroom.Repository = (*classRoomRepository)(nil) // interface compliance check

func NewClassRoomRepository(exec core.DBExecutor) classroom.Repository {
	return &classRoomRepository{baseRepository{exec: exec}}
}

func (repo *classRoomRepository) CreateClassRoom(ctx context.Context, c classroom.ClassRoom, exec ...core.DBExecutor) (classroom.ClassRoom, error) {
	var r classRoomRow
	err := repo.getExec(exec).GetContext(ctx, &r,
		`INSERT INTO classroom AS c (title, description, enrollment_password_hash, instructor_id, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+classRoomColumns,
		c.Title, c.Description, c.EnrollmentPasswordHash, null.NewString(c.InstructorID, c.InstructorID != ""), c.CreatedAt.UTC())
	if err != nil {
		return classroom.ClassRoom{}, errors.Wrap(err, "inserting classroom")
	}
	return r.toClassRoom(), nil
}

func (repo *classRoomRepository) GetClassRoom(ctx context.Context, id int64, exec ...core.DBExecutor) (classroom.ClassRoom, error) {
	var r classRoomRow
	err := repo.getExec(exec).GetContext(ctx, &r, `SELECT `+classRoomColumns+` FROM classroom c WHERE c.id = $1`, id)
	if err != nil {
		return classroom.ClassRoom{}, trapNoRowsErr(err, classroom.ErrNotFound, "finding classroom")
	}
	return r.toClassRoom(), nil
}

var classRoomOrderFields = map[string]string{
	"title":      "c.title",
	"created_at": "c.created_at",
}

func (repo *classRoomRepository) QueryClassRooms(ctx context.Context, filter *classroom.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]classroom.ClassRoom, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(c.title ILIKE ? OR c.description ILIKE ?)", val, val)
		}
		if filter.InstructorID != "" {
			w.add("c.instructor_id::text = ?", filter.InstructorID)
		}
		if filter.StudentID != "" {
			w.add("EXISTS (SELECT 1 FROM enrollment e WHERE e.classroom_id = c.id AND e.student_id::text = ?)", filter.StudentID)
		}
	}

	var rows []classRoomRow
	q := `SELECT ` + classRoomColumns + ` FROM classroom c` + w.String() + orderBy(ordering, classRoomOrderFields, "c.created_at DESC, c.id DESC")
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}
	classes := make([]classroom.ClassRoom, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.toClassRoom())
	}
	return classes, nil
}

func (repo *classRoomRepository) UpdateClassRoom(ctx context.Context, c classroom.ClassRoom, exec ...core.DBExecutor) (classroom.ClassRoom, error) {
	var r classRoomRow
	err := repo.getExec(exec).GetContext(ctx, &r,
		`UPDATE classroom AS c SET title = $2, description = $3, enrollment_password_hash = $4, instructor_id = $5
		WHERE c.id = $1 RETURNING `+classRoomColumns,
		c.ID, c.Title, c.Description, c.EnrollmentPasswordHash, null.NewString(c.InstructorID, c.InstructorID != ""))
	if err != nil {
		return classroom.ClassRoom{}, trapNoRowsErr(err, classroom.ErrNotFound, "updating classroom")
	}
	return r.toClassRoom(), nil
}

func (repo *classRoomRepository) DeleteClassRoom(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM classroom WHERE id = $1`, id)
	return errors.Wrap(err, "deleting classroom")
}

const enrollmentSelect = `SELECT e.id, e.classroom_id, e.student_id, e.enrolled_at,
	u.name AS student_name, COALESCE(u.email, '') AS student_email, c.title AS class_title
	FROM enrollment e
	JOIN "user" u ON u.id = e.student_id
	JOIN classroom c ON c.id = e.classroom_id`

func (repo *classRoomRepository) InsertEnrollment(ctx context.Context, e classroom.Enrollment, exec ...core.DBExecutor) (classroom.Enrollment, bool, error) {
	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx,
		`INSERT INTO enrollment (classroom_id, student_id, enrolled_at) VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT enrollment_classroom_student_key DO NOTHING`,
		e.ClassRoomID, e.StudentID, e.EnrolledAt.UTC())
	if err != nil {
		return classroom.Enrollment{}, false, errors.Wrap(err, "inserting enrollment")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classroom.Enrollment{}, false, errors.Wrap(err, "counting inserted enrollments")
	}

	var r enrollmentRow
	err = exe.GetContext(ctx, &r, enrollmentSelect+` WHERE e.classroom_id = $1 AND e.student_id = $2`, e.ClassRoomID, e.StudentID)
	if err != nil {
		return classroom.Enrollment{}, false, errors.Wrap(err, "finding enrollment")
	}
	return r.toEnrollment(), n > 0, nil
}

func (repo *classRoomRepository) IsEnrolled(ctx context.Context, classID int64, studentID string, exec ...core.DBExecutor) (bool, error) {
	var enrolled bool
	err := repo.getExec(exec).GetContext(ctx, &enrolled,
		`SELECT EXISTS (SELECT 1 FROM enrollment WHERE classroom_id = $1 AND student_id::text = $2)`, classID, studentID)
	return enrolled, errors.Wrap(err, "checking enrollment")
}

func (repo *classRoomRepository) QueryEnrollments(ctx context.Context, filter classroom.EnrollmentFilter, exec ...core.DBExecutor) ([]classroom.Enrollment, error) {
	var w where
	if filter.ClassRoomID != 0 {
		w.add("e.classroom_id = ?", filter.ClassRoomID)
	}
	if filter.StudentID != "" {
		w.add("e.student_id::text = ?", filter.StudentID)
	}

	var rows []enrollmentRow
	q := enrollmentSelect + w.String() + ` ORDER BY c.title, u.name, e.id`
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]classroom.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.toEnrollment())
	}
	return enrs, nil
}

func (repo *classRoomRepository) MaxContentOrder(ctx context.Context, classID int64, exec ...core.DBExecutor) (int, error) {
	var max int
	err := repo.getExec(exec).GetContext(ctx, &max,
		`SELECT COALESCE(MAX(position), 0) FROM content_block WHERE classroom_id = $1`, classID)
	return max, errors.Wrap(err, "finding max content position")
}

func (repo *classRoomRepository) CreateContentBlock(ctx context.Context, b classroom.ContentBlock, exec ...core.DBExecutor) (classroom.ContentBlock, error) {
	var r contentBlockRow
	err := repo.getExec(exec).GetContext(ctx, &r,
		`INSERT INTO content_block (classroom_id, content, position, created_at) VALUES ($1, $2, $3, $4)
		RETURNING `+contentBlockColumns,
		b.ClassRoomID, b.Content, b.Order, b.CreatedAt.UTC())
	if err != nil {
		return classroom.ContentBlock{}, trapUniqueErr(err, "content was added concurrently, please retry", "inserting content block")
	}
	return r.toContentBlock(), nil
}

func (repo *classRoomRepository) GetContentBlock(ctx context.Context, id int64, exec ...core.DBExecutor) (classroom.ContentBlock, error) {
	var r contentBlockRow
	err := repo.getExec(exec).GetContext(ctx, &r, `SELECT `+contentBlockColumns+` FROM content_block WHERE id = $1`, id)
	if err != nil {
		return classroom.ContentBlock{}, trapNoRowsErr(err, classroom.ErrContentBlockNotFound, "finding content block")
	}
	return r.toContentBlock(), nil
}

func (repo *classRoomRepository) QueryContentBlocks(ctx context.Context, classID int64, exec ...core.DBExecutor) ([]classroom.ContentBlock, error) {
	var rows []contentBlockRow
	err := repo.getExec(exec).SelectContext(ctx, &rows,
		`SELECT `+contentBlockColumns+` FROM content_block WHERE classroom_id = $1 ORDER BY position`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying content blocks")
	}
	blocks := make([]classroom.ContentBlock, 0, len(rows))
	for _, r := range rows {
		blocks = append(blocks, r.toContentBlock())
	}
	return blocks, nil
}

func (repo *classRoomRepository) UpdateContentBlock(ctx context.Context, b classroom.ContentBlock, exec ...core.DBExecutor) (classroom.ContentBlock, error) {
	var r contentBlockRow
	err := repo.getExec(exec).GetContext(ctx, &r,
		`UPDATE content_block SET content = $2, updated_at = $3 WHERE id = $1 RETURNING `+contentBlockColumns,
		b.ID, b.Content, null.TimeFromPtr(b.UpdatedAt))
	if err != nil {
		return classroom.ContentBlock{}, trapNoRowsErr(err, classroom.ErrContentBlockNotFound, "updating content block")
	}
	return r.toContentBlock(), nil
}

func (repo *classRoomRepository) DeleteContentBlock(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM content_block WHERE id = $1`, id)
	return errors.Wrap(err, "deleting content block")
}
