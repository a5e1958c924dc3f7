package project

import "errors"

var errNotFound = errors.New("user not found")

// memRepository keeps users in memory.
type memRepository struct {
	users map[int]*User
}

func (r *memRepository) FindByID(id int) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errNotFound
	}
	return u, nil
}

func (r *memRepository) Save(user *User) error {
	r.users[user.ID] = user
	return nil
}
