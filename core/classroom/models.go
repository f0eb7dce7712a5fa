package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

// Enrollment outcomes
const (
	StatusEnrolled        = "enrolled"
	StatusAlreadyEnrolled = "already enrolled"
)

type ClassRoom struct {
	ID                     int64     `json:"id"`
	Title                  string    `json:"title"`
	Description            string    `json:"description"`
	EnrollmentPasswordHash []byte    `json:"-"`
	InstructorID           string    `json:"instructor_id"` // empty when no instructor is assigned
	CreatedAt              time.Time `json:"created_at"`
}

func (c ClassRoom) HasEnrollmentPassword() bool {
	return len(c.EnrollmentPasswordHash) > 0
}

// IsOwnedBy reports whether p is the classroom's instructor.
func (c ClassRoom) IsOwnedBy(p user.Principal) bool {
	return c.InstructorID != "" && c.InstructorID == p.UserID
}

// CanManage reports whether p may change the classroom and its content.
func (c ClassRoom) CanManage(p user.Principal) bool {
	return p.IsAdmin() || c.IsOwnedBy(p)
}

type Enrollment struct {
	ID           int64     `json:"id"`
	ClassRoomID  int64     `json:"classroom_id"`
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	ClassTitle   string    `json:"classroom_title"`
	EnrolledAt   time.Time `json:"enrolled_at"`
}

type ContentBlock struct {
	ID          int64      `json:"id"`
	ClassRoomID int64      `json:"classroom_id"`
	Content     string     `json:"content"`
	Order       int        `json:"order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// EnrollResult is the outcome of a successful enrollment.
type EnrollResult struct {
	Status     string     `json:"status"`
	Enrollment Enrollment `json:"enrollment"`
}

// NewClassRoom contains information needed to create a new ClassRoom.
type NewClassRoom struct {
	Title              string `json:"title" validate:"required,notblank,max=200"`
	Description        string `json:"description" validate:"max=4000"`
	InstructorID       string `json:"instructor_id" validate:"omitempty,uuid"`
	EnrollmentPassword string `json:"enrollment_password" validate:"omitempty,max=128"`
}

func (nc *NewClassRoom) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.InstructorID = core.CleanString(nc.InstructorID, true /* lower */)
	return validate.Struct(nc)
}

// UpdateClassRoom defines what information may be provided to modify an existing ClassRoom.
type UpdateClassRoom struct {
	Title       string  `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=4000"`
}

func (uc *UpdateClassRoom) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	if uc.Description != nil {
		d := core.CleanString(*uc.Description)
		uc.Description = &d
	}
	return validate.Struct(uc)
}

// SetEnrollmentPassword sets or, when Password is empty, clears the enrollment password.
type SetEnrollmentPassword struct {
	Password string `json:"password" validate:"omitempty,max=128"`
}

func (sp *SetEnrollmentPassword) Validate(validate *validator.Validate) error {
	sp.Password = core.CleanString(sp.Password)
	return validate.Struct(sp)
}

type EnrollRequest struct {
	Password string `json:"password"`
}

type ContentBlockForm struct {
	Content string `json:"content" validate:"required,notblank"`
}

func (cf *ContentBlockForm) Validate(validate *validator.Validate) error {
	return validate.Struct(cf)
}

type QueryFilter struct {
	Search       string `query:"search"`
	InstructorID string `query:"instructor_id"`
	StudentID    string `query:"-"` // enrolled student
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.InstructorID = core.CleanString(qf.InstructorID, true /* lower */)
}

type EnrollmentFilter struct {
	ClassRoomID int64
	StudentID   string
}

// Details is a classroom as seen by one of its members.
type Details struct {
	ClassRoom
	HasEnrollmentPassword bool           `json:"has_enrollment_password"`
	IsEnrolled            bool           `json:"is_enrolled"`
	CanManage             bool           `json:"can_manage"`
	ContentBlocks         []ContentBlock `json:"content_blocks"`
}
