package fakeapi

import (
	"golang.org/x/crypto/bcrypt"
)

type user struct {
	id           int64
	username     string
	passwordHash string
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func (u user) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) == nil
}

func (s *Server) addUser(username, password string) {
	hash, err := hashPassword(password)
	if err != nil {
		panic("fakeapi: hash password: " + err.Error())
	}
	s.users[username] = user{id: int64(len(s.users) + 1), username: username, passwordHash: hash}
}

// authenticate looks up username and checks password. Callers hold s.mu.
func (s *Server) authenticate(username, password string) (user, bool) {
	u, ok := s.users[username]
	if !ok || !u.checkPassword(password) {
		return user{}, false
	}
	return u, true
}

func (s *Server) userByID(id int64) (user, bool) {
	for _, u := range s.users {
		if u.id == id {
			return u, true
		}
	}
	return user{}, false
}
