package main

import (
	"context"
	"fmt"

	"github.com/trezcool/academia/core/user"
)

// addUser creates a user.User; the password policy and uniqueness checks apply.
func (cli *commandLine) addUser(nu user.NewUser) error {
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%s %q created (id: %s)\n", usr.Role, usr.Username, usr.ID)
	return nil
}
