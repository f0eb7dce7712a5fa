package assignment

import (
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

// ArchiveName is the download name of the zip holding an assignment's submissions.
func ArchiveName(a Assignment) string {
	return fmt.Sprintf("assignment_%d_submissions.zip", a.ID)
}

// WriteArchive writes a zip of the latest file submission of every student to w.
// Entries are named "<student id>_<file name>".
func (svc *Service) WriteArchive(ctx context.Context, p user.Principal, assignmentID int64, w io.Writer) (Assignment, error) {
	a, err := svc.getManaged(ctx, p, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	subs, err := svc.repo.QuerySubmissions(ctx, SubmissionFilter{AssignmentID: assignmentID})
	if err != nil {
		return Assignment{}, errors.Wrap(err, "querying submissions")
	}

	zw := zip.NewWriter(w)
	for _, sub := range LatestSubmissions(withFiles(subs)) {
		if err := ctx.Err(); err != nil {
			return Assignment{}, err
		}
		if err := svc.addToArchive(zw, sub); err != nil {
			return Assignment{}, err
		}
	}
	return a, errors.Wrap(zw.Close(), "closing archive")
}

func (svc *Service) addToArchive(zw *zip.Writer, sub Submission) error {
	r, err := svc.store.Open(sub.FilePath)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("skipping missing submission file %q: %v", sub.FilePath, err), err)
		return nil
	}
	defer r.Close()

	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     sub.StudentID + "_" + sub.FileName,
		Method:   zip.Deflate,
		Modified: sub.SubmittedAt,
	})
	if err != nil {
		return errors.Wrap(err, "creating archive entry")
	}
	_, err = io.Copy(fw, r)
	return errors.Wrap(err, "writing archive entry")
}

func withFiles(subs []Submission) []Submission {
	out := make([]Submission, 0, len(subs))
	for _, s := range subs {
		if s.HasFile() {
			out = append(out, s)
		}
	}
	return out
}
