package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"markethub/internal/auth"
	"markethub/internal/db"
	"markethub/internal/models"
	"markethub/internal/repository"
)

// ErrInvalidCredentials covers both unknown username and password mismatch,
// deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

type UserService struct {
	conn  *sqlx.DB
	users *repository.UserRepository
}

func NewUserService(conn *sqlx.DB, users *repository.UserRepository) *UserService {
	return &UserService{conn: conn, users: users}
}

type RegisterInput struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	IsCompany   bool    `json:"is_company"`
	CompanyName *string `json:"company_name"`
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if in.Username == "" {
		return nil, Validation("username", "username is required")
	}
	if in.Email == "" {
		return nil, Validation("email", "email is required")
	}
	if len(in.Password) < 8 {
		return nil, Validation("password", "password must be at least 8 characters")
	}
	if in.IsCompany && (in.CompanyName == nil || strings.TrimSpace(*in.CompanyName) == "") {
		return nil, Validation("company_name", "company_name is required for company accounts")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Username:     in.Username,
		PasswordHash: hash,
		Email:        in.Email,
		Role:         models.RoleUser,
		IsCompany:    in.IsCompany,
		CompanyName:  in.CompanyName,
	}

	err = db.WithRetry(ctx, func(ctx context.Context) error {
		return s.users.Create(ctx, u)
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, Conflict("username_taken", "username is already taken")
		}
		return nil, storageErr(err, "user")
	}
	return u, nil
}

// Login resolves a username (case-sensitive exact match, pre-trimmed) and
// checks the password hash. On success it returns the snapshot the session
// store caches.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.Identity, error) {
	username = strings.TrimSpace(username)

	var u *models.User
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.users.GetByUsername(ctx, username)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storageErr(err, "user")
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return &models.Identity{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		Role:              u.Role,
		IsCompany:         u.IsCompany,
		IsVerifiedCompany: u.IsVerifiedCompany,
	}, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	var u *models.User
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.users.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "user")
	}
	return u, nil
}

// Delete removes a user and, through the schema's cascades, every listing,
// file row and application they own. Only the user themselves or an admin
// may do it.
func (s *UserService) Delete(ctx context.Context, identity *models.Identity, userID int64) error {
	if identity == nil {
		return Forbidden(auth.ReasonAnonymous)
	}
	if identity.ID != userID {
		if d := auth.IsAdmin(identity); !d.Allowed {
			return Forbidden(d.Reason)
		}
	}

	var rows int64
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.users.Delete(ctx, userID)
		return err
	})
	if err != nil {
		return storageErr(err, "user")
	}
	if rows == 0 {
		return NotFound("user")
	}
	return nil
}
