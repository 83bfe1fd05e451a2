// Package services contains server-side business logic. This file implements
// UserService, which creates accounts, checks credentials and changes the
// key a user's flights are encrypted with.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/logging"
	"github.com/dmitrijs2005/flightkeeper/internal/server/flights"
	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
)

// UsernameLength is the size of generated usernames.
const UsernameLength = 16

const maxUsernameAttempts = 100

// LoginLinkSender mails a link that lets the app log in without typing the
// key.
type LoginLinkSender interface {
	SendLoginLink(ctx context.Context, username string, key []byte, address string) error
}

// UserService provides account operations on top of the flight storage:
// - CreateUser: write an empty logbook for a new name
// - Login / CheckLogin: open a user's store and verify the key
// - ChangePassword: re-encrypt a logbook under a new key
type UserService struct {
	storage *flights.Storage
	links   LoginLinkSender
	logger  logging.Logger

	randString func(size int, alphabet string) (string, error)
}

// NewUserService constructs a UserService. links may be nil when mail is not
// configured; login links are then skipped.
func NewUserService(storage *flights.Storage, links LoginLinkSender, logger logging.Logger) *UserService {
	return &UserService{
		storage:    storage,
		links:      links,
		logger:     logger,
		randString: common.MakeRandString,
	}
}

// CreateUser writes an empty logbook. A taken name yields
// common.ErrorAlreadyExists.
func (s *UserService) CreateUser(ctx context.Context, login models.LoginData) (*flights.Store, error) {
	st, err := s.storage.Create(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return st, nil
}

// GenerateUsername returns a random name no user file exists for yet.
func (s *UserService) GenerateUsername(ctx context.Context) (string, error) {
	for i := 0; i < maxUsernameAttempts; i++ {
		name, err := s.randString(UsernameLength, common.AlphaNumeric)
		if err != nil {
			return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
		exists, err := s.storage.Exists(name)
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: no free username after %d attempts", common.ErrorInternal, maxUsernameAttempts)
}

// Login opens the store for login. The store is returned even when the key
// is wrong so later requests can tell "wrong key" from "never logged in".
func (s *UserService) Login(ctx context.Context, login models.LoginData) (*flights.Store, error) {
	st, err := s.storage.Open(ctx, login)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "login", "user", login.Username, "ok", st.CorrectKey())
	return st, nil
}

// CheckLogin reports whether login matches an existing user. The key in
// login is wiped afterwards.
func (s *UserService) CheckLogin(ctx context.Context, login models.LoginData) (bool, error) {
	st, err := s.storage.Open(ctx, login)
	if err != nil {
		return false, err
	}
	defer st.Close()
	return st.CorrectKey(), nil
}

// ChangePassword re-encrypts the logbook of st under the key in newLogin and
// returns the store for the new credentials. When newLogin carries an email
// address a login link is mailed to it; failing to send it is logged only.
func (s *UserService) ChangePassword(ctx context.Context, st *flights.Store, newLogin models.LoginDataWithEmail) (*flights.Store, error) {
	if !st.CorrectKey() {
		return nil, flights.ErrWrongKey
	}

	ns, err := s.storage.Rekey(ctx, st, newLogin.Key)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "password changed", "user", st.Username())

	if strings.TrimSpace(newLogin.Email) != "" && s.links != nil {
		if err := s.links.SendLoginLink(ctx, st.Username(), newLogin.Key, newLogin.Email); err != nil {
			s.logger.Warn(ctx, "login link not sent", "user", st.Username(), "error", err)
		}
	}
	return ns, nil
}
