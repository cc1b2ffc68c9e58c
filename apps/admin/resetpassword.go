package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	usr, err := cli.usrSvc.ResetPassword(context.Background(), uname, pwd)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "password of %q updated\n", usr.Username)
	return nil
}
