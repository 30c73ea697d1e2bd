// Command promote changes a user's role out of band. Roles are never settable over HTTP.
//
//	go run ./cmd/promote -email alice@x.com -role admin
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"notekeeper/config"
	"notekeeper/internal/domain/entity"
	"notekeeper/internal/domain/lifecycle"
	"notekeeper/internal/infra/auth"
	logs "notekeeper/internal/infra/log"
	"notekeeper/internal/infra/persistence"
	"notekeeper/internal/usecase"
	"notekeeper/internal/usecase/impl"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

func main() {
	email := flag.String("email", "", "Email of the account to change")
	role := flag.String("role", string(entity.RoleAdmin), "Role to grant (user, admin)")
	flag.Parse()

	if err := run(*email, entity.Role(*role)); err != nil {
		fmt.Fprintf(os.Stderr, "promote: %v\n", err)
		os.Exit(1)
	}
}

func run(email string, role entity.Role) error {
	if email == "" {
		return errors.New("-email is required")
	}
	if !role.IsValid() {
		return errors.Errorf("unknown role %q", role)
	}

	var users usecase.UserUsecase
	app := fx.New(
		fx.NopLogger,
		fx.Provide(
			config.New,
			logs.New,
			persistence.New,
			auth.NewJWTService,
			impl.NewUserService,
		),
		fx.Populate(&users),
	)
	if err := app.Err(); err != nil {
		return errors.Wrap(err, "wiring failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return errors.Wrap(err, "start failed")
	}
	defer func() { _ = app.Stop(context.Background()) }()

	user, err := users.ChangeRole(ctx, email, role)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s) is now %s\n", user.Email, user.ID, user.Role)

	return nil
}
