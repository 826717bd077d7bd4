package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"greenreport-be/apperror"
	"greenreport-be/models"
	"greenreport-be/store"
	authUtils "greenreport-be/utils"

	"github.com/sirupsen/logrus"
)

// AccountService handles login and the admin-managed worker accounts.
type AccountService struct {
	store  store.Store
	tokens *authUtils.TokenManager
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewAccountService(st store.Store, tokens *authUtils.TokenManager, log logrus.FieldLogger) *AccountService {
	return &AccountService{store: st, tokens: tokens, log: log, now: time.Now}
}

// LoginUser is the user summary returned alongside a token.
type LoginUser struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
	Email string      `json:"email"`
	City  string      `json:"city"`
}

type LoginResult struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// NewWorker is the admin form for creating a worker account.
type NewWorker struct {
	Name     string
	Email    string
	Password string
	City     string
}

var errBadCredentials = apperror.InvalidArgument("Invalid email or password")

func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.InvalidArgument("Email and password are required")
	}

	user, err := s.store.Users().FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !user.ComparePassword(password) {
		return nil, errBadCredentials
	}

	token, err := s.tokens.Generate(user.ID.Hex(), string(user.Role))
	if err != nil {
		return nil, apperror.Internal(err)
	}

	s.log.WithFields(logrus.Fields{"userId": user.ID.Hex(), "role": user.Role}).Info("user logged in")
	return &LoginResult{
		Token: token,
		User: LoginUser{
			ID:    user.ID.Hex(),
			Name:  user.Name,
			Role:  user.Role,
			Email: user.Email,
			City:  user.City,
		},
	}, nil
}

// Me returns the current user without the password hash.
func (s *AccountService) Me(ctx context.Context, userID string) (*models.User, error) {
	id, err := parseID(userID, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "User not found")
	}
	user.Password = ""
	return &user, nil
}

func (s *AccountService) CreateWorker(ctx context.Context, in NewWorker) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	city := strings.TrimSpace(in.City)

	if name == "" || email == "" || city == "" || in.Password == "" {
		return nil, apperror.InvalidArgument("Name, email, password and city are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.InvalidArgument("Invalid email address")
	}
	if len(in.Password) < 6 {
		return nil, apperror.InvalidArgument("Password must be at least 6 characters")
	}

	now := s.now()
	worker := models.User{
		Name:      name,
		Email:     email,
		Password:  in.Password,
		Role:      models.RoleWorker,
		City:      city,
		CityKey:   models.CityKey(city),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := worker.HashPassword(); err != nil {
		return nil, apperror.Internal(err)
	}
	if err := s.store.Users().Create(ctx, &worker); err != nil {
		return nil, translate(err, "User not found")
	}

	s.log.WithFields(logrus.Fields{"workerId": worker.ID.Hex(), "city": worker.City}).Info("worker created")
	worker.Password = ""
	return &worker, nil
}

// EnsureAdmin creates the admin account if no user has the given email.
func (s *AccountService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	_, err := s.store.Users().FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	now := s.now()
	admin := models.User{
		Name:      name,
		Email:     email,
		Password:  password,
		Role:      models.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := admin.HashPassword(); err != nil {
		return err
	}
	if err := s.store.Users().Create(ctx, &admin); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return err
	}
	s.log.WithField("email", email).Info("admin account created")
	return nil
}
