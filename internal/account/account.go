// Package account handles registration, login, profiles, role changes and
// bans. Token lifecycle is delegated to the session manager.
package account

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/crypto"
	"volunteerhub/internal/db"
	"volunteerhub/internal/model"
	"volunteerhub/internal/repository"
	"volunteerhub/internal/session"
)

var (
	errBadCredentials = apperr.Unauthorized("invalid credentials")
	errUserNotFound   = apperr.Missing("user not found")
)

const minPasswordLength = 6

type Manager struct {
	store    *repository.Store
	sessions *session.Manager
	now      func() time.Time
}

func NewManager(store *repository.Store, sessions *session.Manager) *Manager {
	return &Manager{store: store, sessions: sessions, now: time.Now}
}

type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	StudentID *string
	FacultyID *int64
	MajorID   *int64
}

func (r *Registration) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.Email == "" || r.Password == "" || r.FirstName == "" {
		return apperr.Invalid("email, password and first_name are required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return apperr.Invalid("invalid email address")
	}
	if len(r.Password) < minPasswordLength {
		return apperr.Invalid("password must be at least 6 characters")
	}
	if r.StudentID != nil {
		id := strings.TrimSpace(*r.StudentID)
		if id == "" {
			r.StudentID = nil
		} else if !ValidStudentID(id) {
			return apperr.Invalid("student_id must be 8 digits")
		} else {
			r.StudentID = &id
		}
	}
	return nil
}

// ValidStudentID reports whether id is exactly eight digits.
func ValidStudentID(id string) bool {
	if len(id) != 8 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Register creates a STUDENT account and issues its first session token in the
// same transaction.
func (m *Manager) Register(ctx context.Context, reg Registration, client session.ClientInfo) (session.Issued, error) {
	if err := reg.Validate(); err != nil {
		return session.Issued{}, err
	}
	if err := m.checkAffiliation(ctx, reg.FacultyID, reg.MajorID); err != nil {
		return session.Issued{}, err
	}
	hash, err := crypto.HashPassword(reg.Password)
	if err != nil {
		return session.Issued{}, err
	}

	var issued session.Issued
	err = m.store.WithTx(ctx, func(tx *repository.Store) error {
		created, err := tx.CreateAccount(ctx, model.Account{
			Email:        reg.Email,
			StudentID:    reg.StudentID,
			PasswordHash: hash,
			FirstName:    reg.FirstName,
			LastName:     reg.LastName,
			Role:         model.RoleStudent,
			FacultyID:    reg.FacultyID,
			MajorID:      reg.MajorID,
		})
		if db.IsUniqueViolation(err) {
			return apperr.Conflicting("email or student id is already registered")
		}
		if err != nil {
			return err
		}
		issued, err = m.sessions.IssueIn(ctx, tx, created.ID, client)
		return err
	})
	if err != nil {
		return session.Issued{}, err
	}
	log.Ctx(ctx).Info().Str("account_id", issued.Account.ID).Msg("account registered")
	return issued, nil
}

// checkAffiliation validates that the faculty and major exist and agree.
func (m *Manager) checkAffiliation(ctx context.Context, facultyID, majorID *int64) error {
	if facultyID != nil {
		if _, err := m.store.GetFaculty(ctx, *facultyID); errors.Is(err, repository.ErrNotFound) {
			return apperr.Invalid("faculty not found")
		} else if err != nil {
			return err
		}
	}
	if majorID != nil {
		major, err := m.store.GetMajor(ctx, *majorID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Invalid("major not found")
		}
		if err != nil {
			return err
		}
		if facultyID != nil && major.FacultyID != *facultyID {
			return apperr.Invalid("major does not belong to the faculty")
		}
	}
	return nil
}

// Login accepts an email or a student id. A banned account with the right
// password is refused with Forbidden.
func (m *Manager) Login(ctx context.Context, identifier, password string, client session.ClientInfo) (session.Issued, error) {
	if strings.TrimSpace(identifier) == "" || password == "" {
		return session.Issued{}, apperr.Invalid("identifier and password are required")
	}
	account, err := m.store.GetAccountByLogin(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		return session.Issued{}, errBadCredentials
	}
	if err != nil {
		return session.Issued{}, err
	}
	if err := crypto.CheckPassword(account.PasswordHash, password); err != nil {
		return session.Issued{}, errBadCredentials
	}
	if account.IsBanned {
		return session.Issued{}, session.ErrAccountBanned
	}
	issued, err := m.sessions.Issue(ctx, account.ID, client)
	if err != nil {
		return session.Issued{}, err
	}
	log.Ctx(ctx).Info().Str("account_id", account.ID).Msg("login")
	return issued, nil
}

// Me is the account profile with its accrued hours and points.
type Me struct {
	Profile model.AccountProfile
	Totals  model.ParticipationTotals
}

func (m *Manager) Me(ctx context.Context, actor model.Actor) (Me, error) {
	profile, err := m.store.GetProfile(ctx, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return Me{}, errUserNotFound
	}
	if err != nil {
		return Me{}, err
	}
	totals, err := m.store.ParticipationTotals(ctx, actor.ID)
	if err != nil {
		return Me{}, err
	}
	return Me{Profile: profile, Totals: totals}, nil
}

type ProfileUpdate struct {
	FirstName    *string
	LastName     *string
	FacultyID    *int64
	MajorID      *int64
	ProfileImage *string
}

func (m *Manager) UpdateProfile(ctx context.Context, actor model.Actor, update ProfileUpdate) (model.AccountProfile, error) {
	if update.FirstName != nil {
		name := strings.TrimSpace(*update.FirstName)
		if name == "" {
			return model.AccountProfile{}, apperr.Invalid("first_name cannot be empty")
		}
		update.FirstName = &name
	}
	if err := m.checkAffiliation(ctx, update.FacultyID, update.MajorID); err != nil {
		return model.AccountProfile{}, err
	}
	_, err := m.store.UpdateProfile(ctx, actor.ID, repository.ProfileChanges{
		FirstName:    update.FirstName,
		LastName:     update.LastName,
		FacultyID:    update.FacultyID,
		MajorID:      update.MajorID,
		ProfileImage: update.ProfileImage,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return model.AccountProfile{}, errUserNotFound
	}
	if db.IsForeignKeyViolation(err) {
		return model.AccountProfile{}, apperr.Invalid("faculty or major does not exist")
	}
	if err != nil {
		return model.AccountProfile{}, err
	}
	return m.store.GetProfile(ctx, actor.ID)
}

type UserQuery struct {
	Role   model.Role
	Search string
	Page   int
	Limit  int
}

type UserPage struct {
	Items []model.AccountProfile
	Total int64
	Page  int
	Limit int
}

// List pages through accounts for staff and admins.
func (m *Manager) List(ctx context.Context, actor model.Actor, q UserQuery) (UserPage, error) {
	if !actor.Role.CanManage() {
		return UserPage{}, apperr.Denied("only staff or admins may list users")
	}
	if q.Role != "" && !q.Role.Valid() {
		return UserPage{}, apperr.Invalid("invalid role")
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 10
	}
	items, total, err := m.store.ListProfiles(ctx, repository.AccountFilter{
		Role:   q.Role,
		Search: q.Search,
		Limit:  q.Limit,
		Offset: (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return UserPage{}, err
	}
	return UserPage{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// Get returns a profile to staff, admins or the account itself.
func (m *Manager) Get(ctx context.Context, actor model.Actor, id string) (model.AccountProfile, error) {
	if !actor.Role.CanManage() && actor.ID != id {
		return model.AccountProfile{}, apperr.Denied("you may only view your own profile")
	}
	profile, err := m.store.GetProfile(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.AccountProfile{}, errUserNotFound
	}
	return profile, err
}

// CheckDemotion refuses to take ADMIN away from the last admin.
func CheckDemotion(adminIDs []string, target model.Account, to model.Role) error {
	if target.Role != model.RoleAdmin || to == model.RoleAdmin {
		return nil
	}
	if len(adminIDs) <= 1 {
		return apperr.Conflicting("cannot change the role of the last admin")
	}
	return nil
}

// ChangeRole sets the account's role and records the grant. All ADMIN rows are
// locked before they are counted.
func (m *Manager) ChangeRole(ctx context.Context, actor model.Actor, id string, to model.Role) (model.AccountProfile, error) {
	if !actor.IsAdmin() {
		return model.AccountProfile{}, apperr.Denied("only admins may change roles")
	}
	if !to.Valid() {
		return model.AccountProfile{}, apperr.Invalid("role must be one of STUDENT, STAFF, ADMIN")
	}
	err := m.store.WithTx(ctx, func(tx *repository.Store) error {
		admins, err := tx.LockAdmins(ctx)
		if err != nil {
			return err
		}
		target, err := tx.LockAccount(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return errUserNotFound
		}
		if err != nil {
			return err
		}
		if err := CheckDemotion(admins, target, to); err != nil {
			return err
		}
		if _, err := tx.SetRole(ctx, id, to); err != nil {
			return err
		}
		return tx.InsertRoleGrant(ctx, id, to, actor.ID)
	})
	if err != nil {
		return model.AccountProfile{}, err
	}
	m.sessions.Forget(ctx, id)
	log.Ctx(ctx).Info().Str("account_id", id).Str("role", string(to)).Str("granted_by", actor.ID).Msg("role changed")
	return m.store.GetProfile(ctx, id)
}

func (m *Manager) RoleHistory(ctx context.Context, actor model.Actor, id string) ([]model.RoleGrant, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Denied("only admins may view role history")
	}
	if _, err := m.store.GetAccountByID(ctx, id); errors.Is(err, repository.ErrNotFound) {
		return nil, errUserNotFound
	} else if err != nil {
		return nil, err
	}
	return m.store.ListRoleGrants(ctx, id)
}

// Bootstrap creates an ADMIN account, or promotes and re-passwords an existing
// one with the same email. It is meant for the command line only.
func (m *Manager) Bootstrap(ctx context.Context, email, password, firstName, lastName string) (model.Account, error) {
	reg := Registration{Email: email, Password: password, FirstName: firstName, LastName: lastName}
	if err := reg.Validate(); err != nil {
		return model.Account{}, err
	}
	hash, err := crypto.HashPassword(reg.Password)
	if err != nil {
		return model.Account{}, err
	}
	var account model.Account
	err = m.store.WithTx(ctx, func(tx *repository.Store) error {
		existing, err := tx.GetAccountByEmail(ctx, reg.Email)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			account, err = tx.CreateAccount(ctx, model.Account{
				Email:        reg.Email,
				PasswordHash: hash,
				FirstName:    reg.FirstName,
				LastName:     reg.LastName,
				Role:         model.RoleAdmin,
			})
			return err
		case err != nil:
			return err
		}
		if err := tx.SetPassword(ctx, existing.ID, hash); err != nil {
			return err
		}
		account, err = tx.SetRole(ctx, existing.ID, model.RoleAdmin)
		return err
	})
	return account, err
}
