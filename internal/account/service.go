// Package account implements registration, login, bearer token checks and
// per-user bookmarks.
package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel/manhwa-hub/backend/internal/models"
	"github.com/gabriel/manhwa-hub/backend/internal/normalize"
	"github.com/gabriel/manhwa-hub/backend/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 30
	minPasswordLength = 6
	maxPasswordLength = 72
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
)

type userStore interface {
	Create(ctx context.Context, user models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type bookmarkStore interface {
	ListByUser(ctx context.Context, userID string) ([]models.Bookmark, error)
	Toggle(ctx context.Context, userID string, bookmark models.Bookmark) (bool, error)
}

type Session struct {
	Token    string
	Username string
	UserID   string
}

type Service struct {
	users     userStore
	bookmarks bookmarkStore
	tokens    TokenService
	cost      int
}

func NewService(users userStore, bookmarks bookmarkStore, tokens TokenService) *Service {
	return &Service{users: users, bookmarks: bookmarks, tokens: tokens, cost: bcrypt.DefaultCost}
}

// WithHashCost lowers the bcrypt cost, mainly for tests.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

func (s *Service) Register(ctx context.Context, username string, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}

	return s.issue(&user)
}

func (s *Service) Login(ctx context.Context, username string, password string) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *Service) Authenticate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

func (s *Service) Bookmarks(ctx context.Context, userID string) ([]models.Bookmark, error) {
	return s.bookmarks.ListByUser(ctx, userID)
}

func (s *Service) ToggleBookmark(ctx context.Context, userID string, bookmark models.Bookmark) (Action, error) {
	slug, ok := normalize.SanitizeSlug(bookmark.Slug)
	if !ok {
		return "", fmt.Errorf("%w: slug", ErrInvalidInput)
	}
	bookmark.Slug = slug
	bookmark.Title = strings.TrimSpace(bookmark.Title)
	bookmark.Cover = strings.TrimSpace(bookmark.Cover)

	added, err := s.bookmarks.Toggle(ctx, userID, bookmark)
	if err != nil {
		return "", err
	}
	if added {
		return ActionAdded, nil
	}
	return ActionRemoved, nil
}

func (s *Service) issue(user *models.User) (*Session, error) {
	token, _, err := s.tokens.Sign(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Username: user.Username, UserID: user.ID}, nil
}

func validateCredentials(username string, password string) error {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength || !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username must be %d-%d letters, digits, '.', '_' or '-'", ErrInvalidInput, minUsernameLength, maxUsernameLength)
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}
	return nil
}
