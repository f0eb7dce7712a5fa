package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

// addUser updates or creates an active user.User with the given role.
func (cli *commandLine) addUser(name, uname, email, pwd, role string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	if usr.Name == "" {
		usr.Name = uname
	}
	usr.Roles = []string{role}
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return errors.Wrap(err, "saving user")
}
