package account

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// AccountService handles registration, login and session resolution
type AccountService struct {
	store           repository.AuctionStore
	sessionLifetime time.Duration
}

// NewAccountService creates a new AccountService instance
func NewAccountService(store repository.AuctionStore, sessionLifetime time.Duration) *AccountService {
	return &AccountService{
		store:           store,
		sessionLifetime: sessionLifetime,
	}
}

// Register creates a user with a bcrypt-hashed password and logs them in.
// The password must match its confirmation and the username must be free.
func (s *AccountService) Register(username, email, password, confirmation string) (models.User, models.Session, error) {
	if username == "" || password == "" {
		return models.User{}, models.Session{}, fmt.Errorf("service: %w - missing username or password", auctionerrors.ErrInvalidCredentials)
	}
	if password != confirmation {
		return models.User{}, models.Session{}, fmt.Errorf("service: register %s: %w", username, auctionerrors.ErrPasswordMismatch)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, models.Session{}, fmt.Errorf("service: failed to hash password: %w", err)
	}

	user := models.User{
		UserID:       utils.GenerateID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(user); err != nil {
		return models.User{}, models.Session{}, fmt.Errorf("service: failed to register %s: %w", username, err)
	}

	session, err := s.createSession(user.UserID)
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	return user, session, nil
}

// Login verifies the credentials and establishes a session
func (s *AccountService) Login(username, password string) (models.Session, error) {
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrUserNotFound) {
			return models.Session{}, fmt.Errorf("service: login %s: %w", username, auctionerrors.ErrInvalidCredentials)
		}
		return models.Session{}, fmt.Errorf("service: failed to look up user %s: %w", username, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.Session{}, fmt.Errorf("service: login %s: %w", username, auctionerrors.ErrInvalidCredentials)
	}
	return s.createSession(user.UserID)
}

// Logout terminates a session. Unknown session ids are ignored.
func (s *AccountService) Logout(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.store.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("service: failed to delete session: %w", err)
	}
	return nil
}

// UserFromSession resolves a session cookie value to its user, rejecting
// expired sessions
func (s *AccountService) UserFromSession(sessionID string) (models.User, error) {
	session, err := s.store.GetSession(sessionID)
	if err != nil {
		return models.User{}, fmt.Errorf("service: failed to resolve session: %w", err)
	}
	if time.Now().After(session.ExpiresAt) {
		return models.User{}, fmt.Errorf("service: session expired: %w", auctionerrors.ErrSessionNotFound)
	}
	user, err := s.store.GetUserByID(session.UserID)
	if err != nil {
		return models.User{}, fmt.Errorf("service: failed to load session user: %w", err)
	}
	return user, nil
}

func (s *AccountService) createSession(userID string) (models.Session, error) {
	session := models.Session{
		SessionID: utils.GenerateID(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.sessionLifetime),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSession(session); err != nil {
		return models.Session{}, fmt.Errorf("service: failed to create session for user %s: %w", userID, err)
	}
	return session, nil
}
