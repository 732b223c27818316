package main

import (
	"context"

	"github.com/trezcool/ratiba/core/user"
)

func (cli *commandLine) runResetPassword(args []string) error {
	fs := cli.flagSet("resetpassword")
	uname := fs.String("username", "", "The user's username or email. The password will be prompted next.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if *uname == "" {
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
	return cli.resetPassword(*uname, pwd)
}

// resetPassword applies the password policy, as the API does.
func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	_, err = cli.usrSvc.SetPassword(ctx, usr.ID, user.SetUserPassword{Password: pwd, PasswordConfirm: pwd})
	return err
}
