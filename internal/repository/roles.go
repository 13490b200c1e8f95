package repository

import (
	"context"

	"volunteerhub/internal/model"
)

func (s *Store) InsertRoleGrant(ctx context.Context, accountID string, role model.Role, grantedBy string) error {
	_, err := s.exec(ctx, `
		INSERT INTO role_grants (account_id, role, granted_by)
		VALUES ($1, $2, $3)
	`, accountID, role, grantedBy)
	return err
}

func (s *Store) ListRoleGrants(ctx context.Context, accountID string) ([]model.RoleGrant, error) {
	var grants []model.RoleGrant
	err := s.selectAll(ctx, &grants, `
		SELECT id, account_id, role, granted_by, granted_at
		FROM role_grants
		WHERE account_id = $1
		ORDER BY granted_at DESC, id DESC
	`, accountID)
	return grants, err
}
