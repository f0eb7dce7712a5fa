package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

const (
	demoDomain         = "coursehub.local"
	sampleClassTitle   = "Sample Classroom"
	sampleClassContent = "Welcome! Assignments and attendance sessions for this class show up here."
)

var demoAccounts = []struct {
	name, uname, role string
}{
	{"Demo Admin", "admin", user.RoleAdmin},
	{"Demo Instructor", "instructor", user.RoleInstructor},
	{"Demo Student", "student", user.RoleStudent},
}

// usersByID adapts a user.Repository to classroom.UserGetter.
type usersByID struct {
	repo user.Repository
}

func (u usersByID) GetByID(ctx context.Context, id string) (user.User, error) {
	return u.repo.GetUser(ctx, user.GetFilter{ID: id})
}

// seed creates one demo account per role, all sharing pwd, plus a sample classroom
// taught by the demo instructor with the demo student enrolled. Running it twice is safe.
func (cli *commandLine) seed(pwd string) error {
	ctx := context.Background()

	principals := make(map[string]user.Principal, len(demoAccounts))
	for _, acc := range demoAccounts {
		email := acc.uname + "@" + demoDomain
		if err := cli.addUser(acc.name, acc.uname, email, pwd, acc.role); err != nil {
			return errors.Wrapf(err, "seeding %s", acc.uname)
		}
		usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: acc.uname})
		if err != nil {
			return err
		}
		principals[acc.role] = user.NewPrincipal(usr)
	}

	instructor := principals[user.RoleInstructor]
	existing, err := cli.classSvc.Query(ctx, &classroom.QueryFilter{InstructorID: instructor.UserID}, nil)
	if err != nil {
		return errors.Wrap(err, "querying classrooms")
	}
	for _, c := range existing {
		if c.Title == sampleClassTitle {
			fmt.Printf("%q already exists (id %d)\n", sampleClassTitle, c.ID)
			return nil
		}
	}

	c, err := cli.classSvc.Create(ctx, instructor, classroom.NewClassRoom{
		Title:       sampleClassTitle,
		Description: "A classroom to try things out.",
	})
	if err != nil {
		return errors.Wrap(err, "creating sample classroom")
	}
	if _, err = cli.classSvc.AddContentBlock(ctx, instructor, c.ID, classroom.ContentBlockForm{Content: sampleClassContent}); err != nil {
		return errors.Wrap(err, "adding content")
	}
	if _, err = cli.classSvc.Enroll(ctx, principals[user.RoleStudent], c.ID, ""); err != nil {
		return errors.Wrap(err, "enrolling demo student")
	}
	fmt.Printf("seeded %q (id %d)\n", sampleClassTitle, c.ID)
	return nil
}
