package dummydb

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, usr := range repo.db.table {
		users = append(users, *usr)
	}
	return users
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = struct{}{}
	}

	for _, usr := range repo.query() {
		if _, ok := excluded[usr.ID]; ok {
			continue
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = uuid.New().String()
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := repo.query()
	if filter == nil {
		return users, nil
	}

	// users with search keyword matching any name or email
	if filter.Search != "" {
		kw := strings.ToLower(filter.Search)
		var filtered []user.User
		for _, usr := range users {
			if strings.Contains(strings.ToLower(usr.Name), kw) ||
				strings.Contains(strings.ToLower(usr.Email), kw) {
				filtered = append(filtered, usr)
			}
		}
		users = filtered
	}
	if filter.Role != "" {
		var filtered []user.User
		for _, usr := range users {
			if usr.Role == filter.Role {
				filtered = append(filtered, usr)
			}
		}
		users = filtered
	}
	if filter.IsActive != nil {
		var filtered []user.User
		for _, usr := range users {
			if usr.IsActive == *filter.IsActive {
				filtered = append(filtered, usr)
			}
		}
		users = filtered
	}
	if !filter.CreatedFrom.IsZero() {
		timeUTC := filter.CreatedFrom.UTC()
		var filtered []user.User
		for _, usr := range users {
			if !usr.CreatedAt.Before(timeUTC) {
				filtered = append(filtered, usr)
			}
		}
		users = filtered
	}
	if !filter.CreatedTo.IsZero() {
		timeUTC := filter.CreatedTo.UTC()
		var filtered []user.User
		for _, usr := range users {
			if !usr.CreatedAt.After(timeUTC) {
				filtered = append(filtered, usr)
			}
		}
		users = filtered
	}

	return users, nil
}

// UpdateUser only saves set fields.
func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origUsr, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.Name != "" {
		origUsr.Name = usr.Name
	}
	if usr.Email != "" {
		origUsr.Email = usr.Email
	}
	if usr.Phone != "" {
		origUsr.Phone = usr.Phone
	}
	if usr.Role != "" {
		origUsr.Role = usr.Role
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		origUsr.IsActive = *isActive
	}
	if !usr.LastLogin.IsZero() {
		origUsr.LastLogin = usr.LastLogin
	}
	origUsr.UpdatedAt = usr.UpdatedAt
	if origUsr.UpdatedAt.IsZero() {
		origUsr.UpdatedAt = time.Now().UTC()
	}
	return *origUsr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}
