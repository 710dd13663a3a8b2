package team

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"workforce/internal/platform/db"
	"workforce/internal/platform/querier"
)

type StoreAPI interface {
	DirectReports(ctx context.Context, tenantID, managerID string) ([]string, error)
	ManagerOf(ctx context.Context, tenantID, userID string) (string, bool, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(q querier.Querier) *Store {
	return &Store{DB: q}
}

func (s *Store) DirectReports(ctx context.Context, tenantID, managerID string) ([]string, error) {
	rows, err := db.Executor(ctx, s.DB).Query(ctx, `
    SELECT user_id
    FROM profiles
    WHERE tenant_id = $1 AND manager_user_id = $2
    ORDER BY user_id
  `, tenantID, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ManagerOf reports the manager recorded on userID's profile. ok is false
// when there is no profile or it names no manager.
func (s *Store) ManagerOf(ctx context.Context, tenantID, userID string) (string, bool, error) {
	var managerID *string
	err := db.Executor(ctx, s.DB).QueryRow(ctx, `
    SELECT manager_user_id
    FROM profiles
    WHERE tenant_id = $1 AND user_id = $2
  `, tenantID, userID).Scan(&managerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if managerID == nil || *managerID == "" {
		return "", false, nil
	}
	return *managerID, true, nil
}
