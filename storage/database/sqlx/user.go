package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/user"
)

const userColumns = "id, name, username, email, role, is_active, password_hash, created_at, updated_at"

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		Role:         user.Role(r.Role),
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

// uniquenessErr maps a unique violation on the users table to the matching user error.
func (repo *userRepository) uniquenessErr(err error) error {
	_, constraint := pqErrorCode(err)
	if constraint == "users_email_key" {
		return user.ErrEmailExists
	}
	return user.ErrUsernameExists
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	var where whereClause
	where.add("(username = ? OR email = ?)", username, email)
	if ids := validIDs(excludedIDs); len(ids) > 0 {
		where.add("id NOT IN (?)", ids)
	}
	q, args, err := sqlx.In("SELECT "+userColumns+" FROM users"+where.String()+" LIMIT 1", where.args...)
	if err != nil {
		return errors.Wrap(err, "building user uniqueness query")
	}

	var row userRow
	if err = sqlx.GetContext(ctx, repo.db, &row, repo.db.Rebind(q), args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	if row.Username == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	var row userRow
	err := sqlx.GetContext(ctx, repo.db, &row, q,
		newID(), usr.Name, usr.Username, usr.Email, string(usr.Role),
		usr.IsActive, usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, repo.uniquenessErr(err)
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var row userRow
	var err error

	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		err = sqlx.GetContext(ctx, repo.db, &row, "SELECT "+userColumns+" FROM users WHERE id = $1", filter.ID)
	case filter.UsernameOrEmail != "":
		err = sqlx.GetContext(ctx, repo.db, &row,
			"SELECT "+userColumns+" FROM users WHERE username = $1 OR email = $1 LIMIT 1", filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) QueryUsersByID(ctx context.Context, ids []string) ([]user.User, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	q, args, err := sqlx.In("SELECT "+userColumns+" FROM users WHERE id IN (?)", ids)
	if err != nil {
		return nil, errors.Wrap(err, "building users query")
	}

	var rows []userRow
	if err = sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if !validID(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	// role is immutable
	q := `UPDATE users
		SET name = $2, username = $3, email = $4, is_active = $5, password_hash = $6, updated_at = $7
		WHERE id = $1
		RETURNING ` + userColumns

	var row userRow
	err := sqlx.GetContext(ctx, repo.db, &row, q,
		usr.ID, usr.Name, usr.Username, usr.Email, usr.IsActive, usr.PasswordHash, usr.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, repo.uniquenessErr(err)
		}
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return row.toUser(), nil
}
