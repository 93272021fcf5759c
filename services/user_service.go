package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/yeremiapane/campus-ems/mailer"
	"github.com/yeremiapane/campus-ems/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const verificationTTL = 15 * time.Minute

type RegisterInput struct {
	Name       string `json:"name" binding:"required,max=255"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

type ProfileInput struct {
	Name       string `json:"name" binding:"required,max=255"`
	Phone      string `json:"phone" binding:"max=30"`
	Department string `json:"department" binding:"max=255"`
	Bio        string `json:"bio"`
}

type UserService struct {
	db       *gorm.DB
	mailer   mailer.Sender
	activity *ActivityLogger
	now      func() time.Time
}

func NewUserService(db *gorm.DB, sender mailer.Sender, activity *ActivityLogger) *UserService {
	return &UserService{db: db, mailer: sender, activity: activity, now: time.Now}
}

// Register creates a student or organizer account. Admins are never self-registered.
func (s *UserService) Register(ctx context.Context, in RegisterInput, ip string) (*models.User, error) {
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleOrganizer {
		return nil, ErrInvalidRole
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	var taken int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken > 0 {
		return nil, ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:       strings.TrimSpace(in.Name),
		Email:      email,
		Password:   string(hashed),
		Role:       role,
		Department: in.Department,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.activity.Log(ctx, user.ID, ActivityRegister, "Account created as "+role, ip)
	return &user, nil
}

func (s *UserService) Authenticate(ctx context.Context, email, password, ip string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.activity.Log(ctx, user.ID, ActivityLogin, "Signed in", ip)
	return &user, nil
}

// Logout records the sign-out. Token revocation is the caller's concern.
func (s *UserService) Logout(ctx context.Context, userID uint, ip string) {
	s.activity.Log(ctx, userID, ActivityLogout, "Signed out", ip)
}

func (s *UserService) Get(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput, ip string) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"name":       strings.TrimSpace(in.Name),
		"phone":      in.Phone,
		"department": in.Department,
		"bio":        in.Bio,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.activity.Log(ctx, userID, ActivityProfileUpdate, "Profile updated", ip)
	return s.Get(ctx, userID)
}

func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, next, ip string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return ErrInvalidPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", string(hashed)).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.activity.Log(ctx, userID, ActivityPasswordChange, "Password changed", ip)
	return nil
}

// RequestVerification stores a fresh 6 digit code and mails it to the user.
func (s *UserService) RequestVerification(ctx context.Context, userID uint) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	code, err := verificationCode()
	if err != nil {
		return err
	}
	expires := s.now().Add(verificationTTL)

	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"verification_code": code,
		"verification_exp":  expires,
	}).Error
	if err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}

	return s.mailer.Send(mailer.Email{
		To:      user.Email,
		Subject: "[EMS] Your verification code",
		Body: fmt.Sprintf("Hello %s,\n\nYour EMS verification code is %s. It expires in %d minutes.\n",
			user.Name, code, int(verificationTTL.Minutes())),
	})
}

func (s *UserService) ConfirmVerification(ctx context.Context, userID uint, code, ip string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}
	if user.VerificationCode == "" || user.VerificationCode != strings.TrimSpace(code) ||
		user.VerificationExp == nil || s.now().After(*user.VerificationExp) {
		return ErrVerificationInvalid
	}

	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"is_verified":       true,
		"verification_code": "",
		"verification_exp":  nil,
	}).Error
	if err != nil {
		return fmt.Errorf("confirm verification: %w", err)
	}

	s.activity.Log(ctx, userID, ActivityVerified, "Email address verified", ip)
	return nil
}

func verificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
