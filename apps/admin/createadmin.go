package main

import (
	"context"
	"time"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/user"
)

// createAdmin creates an active admin user, or promotes an existing one and
// resets their password.
func (cli *commandLine) createAdmin(email, name, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Name:      name,
			Email:     email,
			Role:      user.RoleAdmin,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	usr.Role = user.RoleAdmin
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	isActive := true
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &isActive)
	return err
}
