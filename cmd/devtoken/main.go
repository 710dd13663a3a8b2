// Command devtoken mints a bearer token signed with the configured
// JWT_SECRET for local development against the API. It refuses to run when
// APP_ENV is production.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/subosito/gotenv"

	"workforce/internal/domain/auth"
	"workforce/internal/platform/config"
)

var roles = []string{auth.RoleEmployee, auth.RoleManager, auth.RoleHR, auth.RoleAdmin}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	flags := pflag.NewFlagSet("devtoken", pflag.ContinueOnError)
	config.Flags(flags)
	userID := flags.String("user", "", "user id (UUID)")
	tenantID := flags.String("tenant", "", "tenant id (UUID)")
	role := flags.String("role", auth.RoleEmployee, "role: "+strings.Join(roles, ", "))
	ttl := flags.Duration("ttl", 12*time.Hour, "token lifetime")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		return errors.New("devtoken is disabled when APP_ENV=production")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if err := uuid.Validate(*userID); err != nil {
		return fmt.Errorf("--user: %w", err)
	}
	if err := uuid.Validate(*tenantID); err != nil {
		return fmt.Errorf("--tenant: %w", err)
	}
	if !slices.Contains(roles, *role) {
		return fmt.Errorf("--role must be one of %s", strings.Join(roles, ", "))
	}
	if *ttl <= 0 {
		return errors.New("--ttl must be positive")
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, auth.Claims{UserID: *userID, TenantID: *tenantID, RoleName: *role}, *ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
