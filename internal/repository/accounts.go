package repository

import (
	"context"
	"strings"
	"time"

	"volunteerhub/internal/model"
)

const accountColumns = `id, email, student_id, password_hash, first_name, last_name, role, faculty_id, major_id,
	profile_image, is_banned, ban_count, created_at, updated_at`

var profileSelect = `SELECT ` + qualify("a", accountColumns) + `, f.name AS faculty_name, m.name AS major_name
	FROM accounts a
	LEFT JOIN faculties f ON f.id = a.faculty_id
	LEFT JOIN majors m ON m.id = a.major_id`

func (s *Store) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	var created model.Account
	err := s.get(ctx, &created, `
		INSERT INTO accounts (email, student_id, password_hash, first_name, last_name, role, faculty_id, major_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+accountColumns,
		strings.ToLower(account.Email),
		account.StudentID,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Role,
		account.FacultyID,
		account.MajorID,
	)
	return created, err
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (model.Account, error) {
	var account model.Account
	err := s.get(ctx, &account, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return account, err
}

// LockAccount reads the account row FOR UPDATE; only meaningful inside WithTx.
func (s *Store) LockAccount(ctx context.Context, id string) (model.Account, error) {
	var account model.Account
	err := s.get(ctx, &account, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	return account, err
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (model.Account, error) {
	var account model.Account
	err := s.get(ctx, &account, `SELECT `+accountColumns+` FROM accounts WHERE email = lower($1)`, strings.TrimSpace(email))
	return account, err
}

// GetAccountByLogin matches either the email or the student id.
func (s *Store) GetAccountByLogin(ctx context.Context, identifier string) (model.Account, error) {
	identifier = strings.TrimSpace(identifier)
	var account model.Account
	err := s.get(ctx, &account, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = lower($1) OR student_id = $1
		LIMIT 1
	`, identifier)
	return account, err
}

func (s *Store) GetProfile(ctx context.Context, id string) (model.AccountProfile, error) {
	var profile model.AccountProfile
	err := s.get(ctx, &profile, profileSelect+` WHERE a.id = $1`, id)
	return profile, err
}

type AccountFilter struct {
	Role   model.Role
	Search string
	Limit  int
	Offset int
}

func (s *Store) ListProfiles(ctx context.Context, filter AccountFilter) ([]model.AccountProfile, int64, error) {
	var b builder
	if filter.Role != "" {
		b.where("a.role = " + b.arg(filter.Role))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		p := b.arg("%" + search + "%")
		b.where("(a.email ILIKE " + p + " OR a.first_name ILIKE " + p + " OR a.last_name ILIKE " + p + " OR a.student_id ILIKE " + p + ")")
	}
	where := b.whereClause()

	var total int64
	if err := s.get(ctx, &total, `SELECT count(*) FROM accounts a`+where, b.args...); err != nil {
		return nil, 0, err
	}

	limit := b.arg(filter.Limit)
	offset := b.arg(filter.Offset)
	var profiles []model.AccountProfile
	err := s.selectAll(ctx, &profiles, profileSelect+where+` ORDER BY a.created_at DESC LIMIT `+limit+` OFFSET `+offset, b.args...)
	return profiles, total, err
}

type ProfileChanges struct {
	FirstName    *string
	LastName     *string
	FacultyID    *int64
	MajorID      *int64
	ProfileImage *string
}

// UpdateProfile writes only the non-nil fields.
func (s *Store) UpdateProfile(ctx context.Context, id string, changes ProfileChanges) (model.Account, error) {
	var b builder
	if changes.FirstName != nil {
		b.set("first_name", *changes.FirstName)
	}
	if changes.LastName != nil {
		b.set("last_name", *changes.LastName)
	}
	if changes.FacultyID != nil {
		b.set("faculty_id", *changes.FacultyID)
	}
	if changes.MajorID != nil {
		b.set("major_id", *changes.MajorID)
	}
	if changes.ProfileImage != nil {
		b.set("profile_image", *changes.ProfileImage)
	}
	if len(b.sets) == 0 {
		return s.GetAccountByID(ctx, id)
	}
	b.sets = append(b.sets, "updated_at = now()")

	var account model.Account
	err := s.get(ctx, &account, `UPDATE accounts SET `+strings.Join(b.sets, ", ")+` WHERE id = `+b.arg(id)+` RETURNING `+accountColumns, b.args...)
	return account, err
}

func (s *Store) SetRole(ctx context.Context, id string, role model.Role) (model.Account, error) {
	var account model.Account
	err := s.get(ctx, &account, `
		UPDATE accounts SET role = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns, id, role)
	return account, err
}

func (s *Store) SetPassword(ctx context.Context, id, passwordHash string) error {
	n, err := s.exec(ctx, `UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// LockAdmins locks every ADMIN row and returns their ids.
func (s *Store) LockAdmins(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.selectAll(ctx, &ids, `SELECT id FROM accounts WHERE role = 'ADMIN' ORDER BY id FOR UPDATE`)
	return ids, err
}

func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := s.get(ctx, &n, `SELECT count(*) FROM accounts WHERE role = 'ADMIN'`)
	return n, err
}

// MarkBanned flags the account and bumps its ban counter.
func (s *Store) MarkBanned(ctx context.Context, id string) error {
	n, err := s.exec(ctx, `
		UPDATE accounts SET is_banned = true, ban_count = ban_count + 1, updated_at = now()
		WHERE id = $1
	`, id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// RecomputeBanned sets is_banned to whether any active ban row remains.
func (s *Store) RecomputeBanned(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.exec(ctx, `
		UPDATE accounts a
		SET is_banned = EXISTS (SELECT 1 FROM user_bans b WHERE b.account_id = a.id AND b.is_active),
		    updated_at = $2
		WHERE a.id = ANY($1::uuid[])
	`, ids, time.Now().UTC())
}
