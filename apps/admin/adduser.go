package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/user"
)

func (cli *commandLine) runAddUser(args []string) error {
	fs := cli.flagSet("adduser")
	name := fs.String("name", "", "The user's full name.")
	uname := fs.String("username", "", "The user's username.")
	email := fs.String("email", "", "The user's email.")
	isAdmin := fs.Bool("admin", false, "Grant every admin role.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if *uname == "" && *email == "" {
		fs.Usage()
		return errHelp
	}
	pwd, err := cli.readPassword()
	if err != nil {
		return err
	}
	if pwd == "" {
		fs.Usage()
		return errHelp
	}
	return cli.addUser(*name, *uname, *email, pwd, *isAdmin)
}

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	lookup := uname
	if lookup == "" {
		lookup = email
	}
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: lookup})
	exists := err == nil
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return err
		}
		usr = user.User{Username: uname, Email: email, Roles: user.StudentRoles, CreatedAt: time.Now().UTC()}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	if usr.Name == "" {
		usr.Name = lookup
	}
	if isAdmin {
		usr.Roles = user.AdminRoles
	}
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		usr, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s saved\n", usr.ID)
	return nil
}
