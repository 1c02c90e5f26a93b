package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/auth"
	"github.com/ukydev/boardcheck/internal/config"
	"github.com/ukydev/boardcheck/internal/db"
	"github.com/ukydev/boardcheck/internal/logging"
	"github.com/ukydev/boardcheck/internal/models"
	"github.com/urfave/cli/v2"
)

var errOperatorVehicle = errors.New("operators must be assigned a vehicle")

type staffAccount struct {
	Username  string
	Password  string
	Role      models.Role
	VehicleID string
}

func createStaffCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-staff",
		Usage: "Create an operator or admin account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
			&cli.StringFlag{Name: "role", Value: string(models.RoleOperator), Usage: "operator or admin"},
			&cli.StringFlag{Name: "vehicle", Usage: "vehicle id the operator drives"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Store.Backend != config.BackendMongo {
				return cli.Exit("create-staff needs STORE_BACKEND=mongo", 1)
			}
			logger := log.NewEntry(logging.New(cfg.Logging))

			authService, err := auth.NewService(cfg.Auth)
			if err != nil {
				return err
			}
			store, err := openBackend(c.Context, cfg.Store)
			if err != nil {
				return err
			}
			defer store.close(context.Background())

			account := staffAccount{
				Username:  c.String("username"),
				Password:  c.String("password"),
				Role:      models.Role(strings.ToLower(c.String("role"))),
				VehicleID: c.String("vehicle"),
			}
			if err := createStaff(c.Context, authService, store.users, account); err != nil {
				return err
			}
			logger.WithFields(log.Fields{
				"username": account.Username,
				"role":     account.Role,
			}).Info("Staff account created")
			return nil
		},
	}
}

func createStaff(ctx context.Context, authService *auth.Service, users db.UserCollection, account staffAccount) error {
	if !models.IsStaffRole(account.Role) {
		return fmt.Errorf("invalid staff role %q", account.Role)
	}
	if account.Role == models.RoleOperator && account.VehicleID == "" {
		return errOperatorVehicle
	}
	if err := authService.ValidateUsername(account.Username); err != nil {
		return err
	}
	if err := authService.ValidatePassword(account.Password); err != nil {
		return err
	}

	hash, err := authService.HashPassword(account.Password)
	if err != nil {
		return err
	}
	return users.InsertUser(ctx, models.User{
		Username:     account.Username,
		PasswordHash: hash,
		Role:         account.Role,
		VehicleID:    account.VehicleID,
		IsActive:     true,
	})
}

func isDuplicate(err error) bool {
	return errors.Is(err, db.ErrDuplicate)
}
