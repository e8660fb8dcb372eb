package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tutorplan.io/tutorplan/internal/domain"
	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
)

// UserService handles accounts on the default database.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a UserService over the default database.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Authenticate verifies email/password and returns the account. The same
// error is returned for unknown accounts and bad passwords so login probes
// cannot enumerate emails.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	authErr := apperrors.New(apperrors.CodeAuthFailed, "invalid email or password", http.StatusUnauthorized)

	var user domain.User
	err := s.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", email, true).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Burn a bcrypt comparison anyway to keep timing uniform.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000"), []byte(password))
		return nil, authErr
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", email, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, authErr
	}
	return &user, nil
}

// Create registers an account with a freshly hashed password.
func (s *UserService) Create(ctx context.Context, email, fullName, password string, role domain.Role) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", email, err)
	}
	return user, nil
}

// Upsert creates the account if absent and otherwise updates name, password
// and role. Used by seeding.
func (s *UserService) Upsert(ctx context.Context, email, fullName, password string, role domain.Role) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.Create(ctx, email, fullName, password, role)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.FullName = fullName
	user.PasswordHash = string(hash)
	user.Role = role
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, fmt.Errorf("update user %s: %w", email, err)
	}
	return &user, nil
}

// GetByEmail returns the account with the given email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeTutorNotFound, "user not found", http.StatusNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", email, err)
	}
	return &user, nil
}
