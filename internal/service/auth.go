package service

import (
	"context"
	"errors"
	"time"

	"github.com/pchauvet/authgate/internal/events"
	"github.com/pchauvet/authgate/internal/hash"
	"github.com/pchauvet/authgate/internal/logging"
	"github.com/pchauvet/authgate/internal/models"
	"github.com/pchauvet/authgate/internal/repo"
	"github.com/pchauvet/authgate/internal/tokens"
)

type AuthService struct {
	Repo   *repo.UserRepo
	Tokens *tokens.Issuer
	Events *events.Producer
}

type LoginResult struct {
	AccessToken string
	User        *models.User
}

type CreateUserInput struct {
	Username string
	Email    string
	Password string
	IsActive bool
	IsAdmin  bool
}

type UpdateUserInput struct {
	Username *string
	Email    *string
	Password *string
	IsActive *bool
	IsAdmin  *bool
}

// Authenticate looks a user up by exact username and verifies the
// password. Unknown user and wrong password fail identically.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login verifies credentials, refuses inactive accounts, records the
// login time and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if !IsActive(user) {
		return nil, ErrInactiveUser
	}

	user, err = s.UpdateLastLogin(ctx, user)
	if err != nil {
		return nil, err
	}

	token, err := s.Tokens.Issue(user.ID, s.Tokens.TTL())
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeUserLoggedIn, user)
	l.Info("login successful", "user_id", user.ID)

	return &LoginResult{AccessToken: token, User: user}, nil
}

// Register creates a user on behalf of requester, who must hold the
// admin flag. Username is checked before email, and each collision is
// reported separately.
func (s *AuthService) Register(ctx context.Context, requester *models.User, in CreateUserInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if requester == nil || !IsAdmin(requester) {
		return nil, ErrForbidden
	}
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, ErrValidation
	}

	if _, err := s.Repo.GetByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if _, err := s.Repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	user, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeUserRegistered, user)
	l.Info("user registered", "user_id", user.ID, "by", requester.ID)

	return user, nil
}

// ChangePassword re-hashes and stores a new password after verifying the
// current one. The stored hash is untouched on failure.
func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, currentPassword, newPassword string) (*models.User, error) {
	if !hash.CheckPassword(user.PasswordHash, currentPassword) {
		return nil, ErrBadCredential
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = pwHash
	if err := s.Repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypePasswordChanged, user)

	return user, nil
}

// UpdateLastLogin stamps the user with the current time and persists it.
func (s *AuthService) UpdateLastLogin(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	user.LastLogin = &now
	if err := s.Repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser applies the set fields of in to an existing user. A new
// password is re-hashed before storage.
func (s *AuthService) UpdateUser(ctx context.Context, user *models.User, in UpdateUserInput) (*models.User, error) {
	if in.Username != nil {
		user.Username = *in.Username
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Password != nil && *in.Password != "" {
		pwHash, err := hash.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = pwHash
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.IsAdmin != nil {
		user.IsAdmin = *in.IsAdmin
	}
	if err := s.Repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user together with everything it owns.
func (s *AuthService) DeleteUser(ctx context.Context, userID uint) error {
	return s.Repo.Delete(ctx, userID)
}

// CreateFirstUser bootstraps an empty store with an admin account. The
// admin flag is forced regardless of the input.
func (s *AuthService) CreateFirstUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	count, err := s.Repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsersExist
	}

	in.IsAdmin = true
	return s.createUser(ctx, in)
}

// ResetAllUsers wipes the user table and all owned data. Test reset only.
func (s *AuthService) ResetAllUsers(ctx context.Context) error {
	return s.Repo.DeleteAll(ctx)
}

func (s *AuthService) createUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: pwHash,
		IsActive:     in.IsActive,
		IsAdmin:      in.IsAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, eventType string, user *models.User) {
	event := events.Event{
		Type:     eventType,
		UserID:   user.ID,
		Username: user.Username,
		At:       time.Now().UTC(),
	}
	if err := s.Events.Publish(ctx, event); err != nil {
		logging.FromContext(ctx).Error("event publish failed", "type", eventType, "error", err)
	}
}

// IsActive reports the stored active flag without side effects.
func IsActive(user *models.User) bool { return user.IsActive }

// IsAdmin reports the stored admin flag without side effects.
func IsAdmin(user *models.User) bool { return user.IsAdmin }
