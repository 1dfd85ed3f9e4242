package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/user"
)

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Email        string      `db:"email"`
	Phone        null.String `db:"phone"`
	Role         string      `db:"role"`
	IsActive     bool        `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

const userColumns = `id, name, email, phone, role, is_active, password_hash, created_at, updated_at, last_login`

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo userRepository) fromRow(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		Phone:        row.Phone.String,
		Role:         row.Role,
		IsActive:     row.IsActive,
		PasswordHash: row.PasswordHash.Bytes,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	ids := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		ids = append(ids, usr.ID)
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM app_user WHERE email = $1 AND id <> ALL($2))`
	if err := repo.getExec(exec).GetContext(ctx, &exists, query, email, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()

	query := `INSERT INTO app_user (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		usr.ID, usr.Name, usr.Email, null.NewString(usr.Phone, usr.Phone != ""), usr.Role, usr.IsActive,
		null.BytesFrom(usr.PasswordHash), usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(),
		null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	query := `SELECT ` + userColumns + ` FROM app_user WHERE id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &row, query, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM app_user WHERE email = $1`
	if err := repo.getExec(exec).GetContext(ctx, &row, query, email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	query := `SELECT ` + userColumns + ` FROM app_user`
	var conds []string
	var args []interface{}

	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		// users with name or email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s)", arg(val), arg(val)))
		}
		if filter.Role != "" {
			conds = append(conds, "role = "+arg(filter.Role))
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo.UTC()))
		}
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderByClause(ordering)

	var rows []userRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users, nil
}

// UpdateUser only saves set fields.
func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool, exec ...core.DBExecutor) (user.User, error) {
	var sets []string
	var args []interface{}

	set := func(column string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if usr.Name != "" {
		set("name", usr.Name)
	}
	if usr.Email != "" {
		set("email", usr.Email)
	}
	if usr.Phone != "" {
		set("phone", usr.Phone)
	}
	if usr.Role != "" {
		set("role", usr.Role)
	}
	if usr.PasswordHash != nil {
		set("password_hash", usr.PasswordHash)
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	if !usr.LastLogin.IsZero() {
		set("last_login", usr.LastLogin.UTC())
	}
	if usr.UpdatedAt.IsZero() {
		usr.UpdatedAt = time.Now()
	}
	set("updated_at", usr.UpdatedAt.UTC())

	args = append(args, usr.ID)
	query := fmt.Sprintf(
		"UPDATE app_user SET %s WHERE id = $%d RETURNING %s", strings.Join(sets, ", "), len(args), userColumns)

	var row userRow
	if err := repo.getExec(exec).GetContext(ctx, &row, query, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "updating user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM app_user WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
