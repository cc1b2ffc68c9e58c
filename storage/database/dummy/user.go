package dummydb

import (
	"context"

	"github.com/trezcool/academia/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) checkUniqueness(username, email string, excludedIDs []string) error {
	isExcluded := func(id string) bool {
		for _, excl := range excludedIDs {
			if excl == id {
				return true
			}
		}
		return false
	}
	for _, usr := range repo.db.users {
		if isExcluded(usr.ID) {
			continue
		}
		if usr.Username == username {
			return user.ErrUsernameExists
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, excludedIDs ...string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.checkUniqueness(username, email, excludedIDs)
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// the unique constraints of the users table
	if err := repo.checkUniqueness(usr.Username, usr.Email, nil); err != nil {
		return user.User{}, err
	}
	usr.ID = newID()
	repo.db.users = append(repo.db.users, &usr)
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.users {
		if filter.ID != "" {
			if usr.ID == filter.ID {
				return *usr, nil
			}
		} else if filter.UsernameOrEmail != "" {
			if usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail {
				return *usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsersByID(_ context.Context, ids []string) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if _, usr := repo.db.findUser(id); usr != nil {
			users = append(users, *usr)
		}
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	_, origUsr := repo.db.findUser(usr.ID)
	if origUsr == nil {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.checkUniqueness(usr.Username, usr.Email, []string{usr.ID}); err != nil {
		return user.User{}, err
	}
	// role is immutable
	usr.Role = origUsr.Role
	usr.CreatedAt = origUsr.CreatedAt
	*origUsr = usr
	return usr, nil
}
