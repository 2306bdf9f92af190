package user

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/auth"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering with an email that already
	// has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service handles account registration, login and profile maintenance.
type Service struct {
	db         *gorm.DB
	jwtService *auth.JWTService
}

// NewService creates a user service.
func NewService(db *gorm.DB, jwtService *auth.JWTService) *Service {
	return &Service{db: db, jwtService: jwtService}
}

// RegisterInput is the payload for Register.
type RegisterInput struct {
	FullName    string `json:"fullName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	PhoneNumber string `json:"phoneNumber"`
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		PhoneNumber:  in.PhoneNumber,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login verifies the credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*User, *auth.TokenPair, error) {
	var u User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.jwtService.GenerateTokenPair(u.ID, u.Role)
	if err != nil {
		return nil, nil, err
	}
	return &u, pair, nil
}

// GetByID fetches a user by ID.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// UpdateProfileInput carries the editable profile fields. Nil pointers leave
// the stored value untouched.
type UpdateProfileInput struct {
	FullName     *string `json:"fullName"`
	PhoneNumber  *string `json:"phoneNumber"`
	Provinsi     *Region `json:"provinsi"`
	Kota         *Region `json:"kota"`
	Kecamatan    *Region `json:"kecamatan"`
	DetailAlamat *string `json:"detailAlamat"`
}

// UpdateProfile applies a partial profile update and returns the fresh row.
func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.FullName != nil {
		updates["full_name"] = *in.FullName
	}
	if in.PhoneNumber != nil {
		updates["phone_number"] = *in.PhoneNumber
	}
	if in.Provinsi != nil {
		updates["provinsi"] = datatypes.NewJSONType(*in.Provinsi)
	}
	if in.Kota != nil {
		updates["kota"] = datatypes.NewJSONType(*in.Kota)
	}
	if in.Kecamatan != nil {
		updates["kecamatan"] = datatypes.NewJSONType(*in.Kecamatan)
	}
	if in.DetailAlamat != nil {
		updates["detail_alamat"] = *in.DetailAlamat
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}

	return s.GetByID(ctx, id)
}
