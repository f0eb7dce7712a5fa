package classroom

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound             = core.NewNotFoundError("classroom")
	ErrContentBlockNotFound = core.NewNotFoundError("content block")
	ErrForbidden            = core.NewForbiddenError("permission denied")
	ErrNotMember            = core.NewForbiddenError("you are not a member of this classroom")
	ErrStudentsOnly         = core.NewForbiddenError("only students can enroll in classrooms")
	ErrInvalidPassword      = core.NewValidationError(
		errors.New("invalid enrollment password"),
		core.FieldError{Field: "password", Error: "invalid enrollment password"},
	)
	errNoInstructorForPassword = core.NewValidationError(
		errors.New("a classroom needs an instructor to be protected by a password"),
		core.FieldError{Field: "enrollment_password", Error: "a classroom needs an instructor to be protected by a password"},
	)
	errInvalidInstructor = core.NewValidationError(
		errors.New("instructor not found"),
		core.FieldError{Field: "instructor_id", Error: "instructor not found"},
	)
)

type (
	Repository interface {
		CreateClassRoom(ctx context.Context, c ClassRoom, exec ...core.DBExecutor) (ClassRoom, error)
		GetClassRoom(ctx context.Context, id int64, exec ...core.DBExecutor) (ClassRoom, error)
		QueryClassRooms(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]ClassRoom, error)
		UpdateClassRoom(ctx context.Context, c ClassRoom, exec ...core.DBExecutor) (ClassRoom, error)
		DeleteClassRoom(ctx context.Context, id int64, exec ...core.DBExecutor) error

		// InsertEnrollment inserts e unless the student is already enrolled.
		// created is false, and the existing row returned, when nothing was inserted.
		InsertEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (enr Enrollment, created bool, err error)
		IsEnrolled(ctx context.Context, classID int64, studentID string, exec ...core.DBExecutor) (bool, error)
		// QueryEnrollments returns enrollments joined with the student's and the classroom's details.
		QueryEnrollments(ctx context.Context, filter EnrollmentFilter, exec ...core.DBExecutor) ([]Enrollment, error)

		MaxContentOrder(ctx context.Context, classID int64, exec ...core.DBExecutor) (int, error)
		CreateContentBlock(ctx context.Context, b ContentBlock, exec ...core.DBExecutor) (ContentBlock, error)
		GetContentBlock(ctx context.Context, id int64, exec ...core.DBExecutor) (ContentBlock, error)
		QueryContentBlocks(ctx context.Context, classID int64, exec ...core.DBExecutor) ([]ContentBlock, error)
		UpdateContentBlock(ctx context.Context, b ContentBlock, exec ...core.DBExecutor) (ContentBlock, error)
		DeleteContentBlock(ctx context.Context, id int64, exec ...core.DBExecutor) error
	}

	// FileCollector lists the stored files owned by a classroom's submissions.
	FileCollector interface {
		ClassRoomFiles(ctx context.Context, classID int64, exec ...core.DBExecutor) ([]string, error)
	}

	// UserGetter resolves users, e.g. the instructor of a classroom.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo   Repository
		tx     core.TxRunner
		users  UserGetter
		files  FileCollector
		store  core.FileStore
		logger core.Logger
	}
)

func NewService(
	repo Repository,
	tx core.TxRunner,
	users UserGetter,
	files FileCollector,
	store core.FileStore,
	logger core.Logger,
) *Service {
	return &Service{
		repo:   repo,
		tx:     tx,
		users:  users,
		files:  files,
		store:  store,
		logger: logger,
	}
}

// Create creates a classroom. Instructors own the classrooms they create; admins may assign any instructor.
func (svc *Service) Create(ctx context.Context, p user.Principal, nc NewClassRoom) (ClassRoom, error) {
	if !(p.IsAdmin() || p.IsInstructor()) {
		return ClassRoom{}, ErrForbidden
	}

	instructorID := nc.InstructorID
	if !p.IsAdmin() || (instructorID == "" && p.IsInstructor()) {
		instructorID = p.UserID
	}

	c := ClassRoom{
		Title:        nc.Title,
		Description:  nc.Description,
		InstructorID: instructorID,
		CreatedAt:    NowFunc().UTC(),
	}

	var instructor user.User
	if instructorID != "" {
		var err error
		if instructor, err = svc.users.GetByID(ctx, instructorID); err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return ClassRoom{}, errInvalidInstructor
			}
			return ClassRoom{}, errors.Wrap(err, "finding instructor")
		}
		if !instructor.IsInstructor() && !instructor.IsAdmin() {
			return ClassRoom{}, errInvalidInstructor
		}
	}

	if nc.EnrollmentPassword != "" {
		if instructorID == "" {
			return ClassRoom{}, errNoInstructorForPassword
		}
		hash, err := user.HashSecret(instructor, nc.EnrollmentPassword)
		if err != nil {
			return ClassRoom{}, errors.Wrap(err, "hashing enrollment password")
		}
		c.EnrollmentPasswordHash = hash
	}

	c, err := svc.repo.CreateClassRoom(ctx, c)
	return c, errors.Wrap(err, "creating classroom")
}

// Query lists classrooms. Non-admin filters on StudentID/InstructorID are left to the caller.
func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]ClassRoom, error) {
	return svc.repo.QueryClassRooms(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id int64) (ClassRoom, error) {
	return svc.repo.GetClassRoom(ctx, id)
}

// IsMember reports whether p may see the classroom: admin, its instructor or an enrolled student.
func (svc *Service) IsMember(ctx context.Context, p user.Principal, c ClassRoom) (bool, error) {
	if c.CanManage(p) {
		return true, nil
	}
	enrolled, err := svc.repo.IsEnrolled(ctx, c.ID, p.UserID)
	return enrolled, errors.Wrap(err, "checking enrollment")
}

// GetForMember returns the classroom if p is one of its members.
func (svc *Service) GetForMember(ctx context.Context, p user.Principal, id int64) (ClassRoom, error) {
	c, err := svc.repo.GetClassRoom(ctx, id)
	if err != nil {
		return ClassRoom{}, err
	}
	ok, err := svc.IsMember(ctx, p, c)
	if err != nil {
		return ClassRoom{}, err
	}
	if !ok {
		return ClassRoom{}, ErrNotMember
	}
	return c, nil
}

// GetForManager returns the classroom if p may manage it.
func (svc *Service) GetForManager(ctx context.Context, p user.Principal, id int64) (ClassRoom, error) {
	c, err := svc.repo.GetClassRoom(ctx, id)
	if err != nil {
		return ClassRoom{}, err
	}
	if !c.CanManage(p) {
		return ClassRoom{}, ErrForbidden
	}
	return c, nil
}

// GetForOwner returns the classroom if p is its instructor.
func (svc *Service) GetForOwner(ctx context.Context, p user.Principal, id int64) (ClassRoom, error) {
	c, err := svc.repo.GetClassRoom(ctx, id)
	if err != nil {
		return ClassRoom{}, err
	}
	if !c.IsOwnedBy(p) {
		return ClassRoom{}, ErrForbidden
	}
	return c, nil
}

func (svc *Service) Details(ctx context.Context, p user.Principal, id int64) (Details, error) {
	c, err := svc.repo.GetClassRoom(ctx, id)
	if err != nil {
		return Details{}, err
	}
	enrolled, err := svc.repo.IsEnrolled(ctx, c.ID, p.UserID)
	if err != nil {
		return Details{}, errors.Wrap(err, "checking enrollment")
	}
	canManage := c.CanManage(p)
	if !(canManage || enrolled) {
		return Details{}, ErrNotMember
	}

	blocks, err := svc.repo.QueryContentBlocks(ctx, c.ID)
	if err != nil {
		return Details{}, errors.Wrap(err, "querying content blocks")
	}
	if blocks == nil {
		blocks = []ContentBlock{}
	}
	return Details{
		ClassRoom:             c,
		HasEnrollmentPassword: c.HasEnrollmentPassword(),
		IsEnrolled:            enrolled,
		CanManage:             canManage,
		ContentBlocks:         blocks,
	}, nil
}

func (svc *Service) Update(ctx context.Context, p user.Principal, id int64, uc UpdateClassRoom) (ClassRoom, error) {
	c, err := svc.GetForManager(ctx, p, id)
	if err != nil {
		return ClassRoom{}, err
	}
	if uc.Title != "" {
		c.Title = uc.Title
	}
	if uc.Description != nil {
		c.Description = *uc.Description
	}
	c, err = svc.repo.UpdateClassRoom(ctx, c)
	return c, errors.Wrap(err, "updating classroom")
}

// SetEnrollmentPassword sets, or clears when pwd is empty, the enrollment password of a classroom.
// Only the classroom's instructor may do so; the hash is bound to that instructor.
func (svc *Service) SetEnrollmentPassword(ctx context.Context, p user.Principal, id int64, pwd string) (ClassRoom, error) {
	c, err := svc.GetForOwner(ctx, p, id)
	if err != nil {
		return ClassRoom{}, err
	}

	if pwd == "" {
		c.EnrollmentPasswordHash = nil
	} else {
		instructor, err := svc.users.GetByID(ctx, c.InstructorID)
		if err != nil {
			return ClassRoom{}, errors.Wrap(err, "finding instructor")
		}
		if c.EnrollmentPasswordHash, err = user.HashSecret(instructor, pwd); err != nil {
			return ClassRoom{}, errors.Wrap(err, "hashing enrollment password")
		}
	}
	c, err = svc.repo.UpdateClassRoom(ctx, c)
	return c, errors.Wrap(err, "updating classroom")
}

// Delete removes a classroom with everything it owns, stored submission files included.
func (svc *Service) Delete(ctx context.Context, p user.Principal, id int64) error {
	if _, err := svc.GetForManager(ctx, p, id); err != nil {
		return err
	}

	var paths []string
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if paths, err = svc.files.ClassRoomFiles(ctx, id, exec); err != nil {
			return errors.Wrap(err, "listing classroom files")
		}
		return errors.Wrap(svc.repo.DeleteClassRoom(ctx, id, exec), "deleting classroom")
	})
	if err != nil {
		return err
	}

	svc.removeFiles(paths)
	return nil
}

func (svc *Service) removeFiles(paths []string) {
	for _, fp := range paths {
		if err := svc.store.Remove(fp); err != nil {
			svc.logger.Warn(fmt.Sprintf("removing stored file %q: %v", fp, err), err)
		}
	}
}

// Enroll enrolls the principal, who must be a student, into a classroom.
// Enrolling again is a no-op reported with StatusAlreadyEnrolled.
func (svc *Service) Enroll(ctx context.Context, p user.Principal, classID int64, password string) (EnrollResult, error) {
	if !p.IsStudent() {
		return EnrollResult{}, ErrStudentsOnly
	}

	c, err := svc.repo.GetClassRoom(ctx, classID)
	if err != nil {
		return EnrollResult{}, err
	}

	if c.HasEnrollmentPassword() {
		if c.InstructorID == "" {
			return EnrollResult{}, ErrInvalidPassword
		}
		instructor, err := svc.users.GetByID(ctx, c.InstructorID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return EnrollResult{}, ErrInvalidPassword
			}
			return EnrollResult{}, errors.Wrap(err, "finding instructor")
		}
		if !user.VerifySecret(instructor, c.EnrollmentPasswordHash, password) {
			return EnrollResult{}, ErrInvalidPassword
		}
	}

	enr, created, err := svc.repo.InsertEnrollment(ctx, Enrollment{
		ClassRoomID: c.ID,
		StudentID:   p.UserID,
		EnrolledAt:  NowFunc().UTC(),
	})
	if err != nil {
		return EnrollResult{}, errors.Wrap(err, "inserting enrollment")
	}

	status := StatusEnrolled
	if !created {
		status = StatusAlreadyEnrolled
	}
	return EnrollResult{Status: status, Enrollment: enr}, nil
}

// Enrollments lists the students enrolled in a classroom.
func (svc *Service) Enrollments(ctx context.Context, p user.Principal, classID int64) ([]Enrollment, error) {
	if _, err := svc.GetForManager(ctx, p, classID); err != nil {
		return nil, err
	}
	return svc.repo.QueryEnrollments(ctx, EnrollmentFilter{ClassRoomID: classID})
}

// AllEnrollments lists the enrollments of every classroom. Admins only.
func (svc *Service) AllEnrollments(ctx context.Context, p user.Principal) ([]Enrollment, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	return svc.repo.QueryEnrollments(ctx, EnrollmentFilter{})
}

func (svc *Service) IsEnrolled(ctx context.Context, classID int64, studentID string, exec ...core.DBExecutor) (bool, error) {
	return svc.repo.IsEnrolled(ctx, classID, studentID, exec...)
}
