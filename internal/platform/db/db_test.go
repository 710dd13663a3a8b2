package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "timesheets_tenant_user_week_key"}

	assert.True(t, IsUniqueViolation(pgErr, ""))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", pgErr), "timesheets_tenant_user_week_key"))
	assert.False(t, IsUniqueViolation(pgErr, "other_key"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(errors.New("boom")))
}

func TestExecutorWithoutTransactionUsesFallback(t *testing.T) {
	ctx := context.Background()
	assert.False(t, InTransaction(ctx))
	assert.Nil(t, Executor(ctx, nil))
}
