package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/postboard-be/internal/apperror"
	"github.com/isdelr/postboard-be/internal/auth"
	"github.com/isdelr/postboard-be/internal/models"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Outcomes of signup and signin that are reported to the client as
// success=false rather than as an error status.
var (
	ErrUserExists        = apperror.NewConflictError("이미 등록된 사용자입니다.", nil)
	ErrUserNotRegistered = apperror.NewNotFoundError("등록되지 않은 사용자입니다.", nil)
	ErrWrongPassword     = apperror.NewAuthError("잘못된 비밀번호입니다.", nil)
)

// ErrInvalidCredentials is returned by ResolveIdentity for any credential mismatch.
var ErrInvalidCredentials = apperror.NewAuthError("Invalid credentials", nil)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Signup(ctx context.Context, username, password string) (models.User, error)
	Signin(ctx context.Context, username, password string) (models.User, error)
	ResolveIdentity(ctx context.Context, username, password string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db     *sqlx.DB
	events EventServiceProvider
}

// NewUserService creates a new UserService.
func NewUserService(db *sqlx.DB, events EventServiceProvider) *UserService {
	return &UserService{db: db, events: events}
}

// Signup registers username with a bcrypt hash of password. The insert is a
// single conditional statement, so concurrent signups for one name produce
// exactly one row; the losers get ErrUserExists.
func (s *UserService) Signup(ctx context.Context, username, password string) (user models.User, err error) {
	ctx, span := startSpan(ctx, "UserService.Signup", trace.WithAttributes(attribute.String("user.name", username)))
	defer endSpan(span, &err)

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, apperror.NewInternalError("failed to register user", err)
	}

	query, args, err := builder.Insert("users").
		Columns("username", "password_hash").
		Values(username, hash).
		Suffix("ON CONFLICT (username) DO NOTHING").
		ToSql()
	if err != nil {
		return models.User{}, err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.User{}, apperror.NewDatabaseError("failed to create user", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.User{}, apperror.NewDatabaseError("failed to create user", err)
	}
	if affected == 0 {
		return models.User{}, ErrUserExists
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, apperror.NewDatabaseError("failed to read new user id", err)
	}

	user, err = s.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	recordEvent(ctx, s.events, "user.signup", "info", fmt.Sprintf("User '%s' registered.", username), &user.ID)
	return user, nil
}

// Signin checks username and password. Unknown usernames return
// ErrUserNotRegistered and mismatched passwords ErrWrongPassword.
func (s *UserService) Signin(ctx context.Context, username, password string) (user models.User, err error) {
	ctx, span := startSpan(ctx, "UserService.Signin", trace.WithAttributes(attribute.String("user.name", username)))
	defer endSpan(span, &err)

	user, err = s.getUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotRegistered
		}
		return models.User{}, apperror.NewDatabaseError("failed to get user", err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return models.User{}, apperror.NewInternalError("failed to verify password", err)
	}
	if !ok {
		recordEvent(ctx, s.events, "user.signin.fail", "warn", fmt.Sprintf("Wrong password for user '%s'.", username), &user.ID)
		return models.User{}, ErrWrongPassword
	}

	user.PasswordHash = ""
	return user, nil
}

// ResolveIdentity returns the user owning the credentials, or
// ErrInvalidCredentials when the username is unknown or the password wrong.
func (s *UserService) ResolveIdentity(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.Signin(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrUserNotRegistered) || errors.Is(err, ErrWrongPassword) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByID retrieves a single user by their ID, without the password hash.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (user models.User, err error) {
	ctx, span := startSpan(ctx, "UserService.GetUserByID", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer endSpan(span, &err)

	query, args, err := builder.Select("id", "username", "created_at").
		From("users").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return models.User{}, err
	}
	if err = s.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperror.NewNotFoundError(fmt.Sprintf("user with ID %d not found", id), nil)
		}
		return models.User{}, apperror.NewDatabaseError("failed to get user", err)
	}
	return user, nil
}

// getUserByUsername retrieves a user including the password hash.
func (s *UserService) getUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	query, args, err := builder.Select("id", "username", "password_hash", "created_at").
		From("users").
		Where("username = ?", username).
		ToSql()
	if err != nil {
		return models.User{}, err
	}
	err = s.db.GetContext(ctx, &user, query, args...)
	return user, err
}
