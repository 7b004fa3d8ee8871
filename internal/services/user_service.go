package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"gorm.io/gorm"
)

// RegisterInput carries the registration form or API payload
type RegisterInput struct {
	Username string `json:"username" form:"username" validate:"required,max=64"`
	Email    string `json:"email" form:"email" validate:"required,max=120"`
	Password string `json:"password" form:"password" validate:"required"`
}

// UserService owns user records and credential verification
type UserService interface {
	// Register creates a user with a hashed password
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	// Authenticate checks a username/password pair
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// EnsureAdmin creates the bootstrap admin account, or promotes it if the
	// username already exists
	EnsureAdmin(ctx context.Context, input RegisterInput) (*models.User, error)
}

type userService struct {
	db     *gorm.DB
	hasher PasswordHasher
	// dummyHash is compared against when the username is unknown so both
	// failure paths spend one bcrypt comparison.
	dummyHash string
}

func NewUserService(db *gorm.DB, hasher PasswordHasher) UserService {
	dummy, _ := hasher.Hash("dummy-password-for-timing")
	return &userService{db: db, hasher: hasher, dummyHash: dummy}
}

func (s *userService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: hash,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkAvailable(tx, user.Username, user.Email); err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a race with a concurrent registration
		if cerr := checkAvailable(s.db.WithContext(ctx), user.Username, user.Email); cerr != nil {
			return nil, cerr
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// checkAvailable reports which unique field is already taken
func checkAvailable(tx *gorm.DB, username, email string) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return ErrDuplicateUsername
	}
	if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return ErrDuplicateEmail
	}
	return nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateNotFound(err, "user")
	}
	return &user, nil
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateNotFound(err, "user")
	}
	return &user, nil
}

func (s *userService) EnsureAdmin(ctx context.Context, input RegisterInput) (*models.User, error) {
	existing, err := s.GetUserByUsername(ctx, strings.TrimSpace(input.Username))
	switch {
	case err == nil:
		if !existing.IsAdmin {
			if err := s.db.WithContext(ctx).Model(existing).Update("is_admin", true).Error; err != nil {
				return nil, fmt.Errorf("promote admin: %w", err)
			}
			existing.IsAdmin = true
		}
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	user, err := s.Register(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("is_admin", true).Error; err != nil {
		return nil, fmt.Errorf("promote admin: %w", err)
	}
	user.IsAdmin = true
	return user, nil
}
