package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"eventweb/apperr"
	"eventweb/db"
	"eventweb/middleware"
	"eventweb/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PasswordChange struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Session is what a successful login hands back.
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"accessToken"`
}

type Service struct {
	store  db.Store
	tokens *middleware.Tokens
	log    *zap.Logger
	cost   int
	now    func() time.Time
}

func NewService(store db.Store, tokens *middleware.Tokens, log *zap.Logger) *Service {
	return &Service{store: store, tokens: tokens, log: log, cost: bcrypt.DefaultCost, now: time.Now}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func (s *Service) Register(ctx context.Context, in Registration) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if strings.TrimSpace(in.Username) == "" || email == "" || in.Password == "" {
		return nil, apperr.Validation("Username, email, and password are required")
	}
	if !validEmail(email) {
		return nil, apperr.Validation("Invalid email format")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperr.Validation("Password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	u := &models.User{
		ID:        primitive.NewObjectID(),
		Username:  strings.TrimSpace(in.Username),
		Email:     email,
		Password:  string(hash),
		Events:    []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertUser(ctx, u); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, apperr.Conflict("Email is already registered")
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	s.log.Info("user registered", zap.String("user_id", u.ID.Hex()))
	return u, nil
}

func (s *Service) Login(ctx context.Context, in Credentials) (*Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperr.Validation("Email and Password are required")
	}
	u, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("User not registered yet")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.Password)) != nil {
		return nil, apperr.Validation("Incorrect password")
	}
	token, err := s.tokens.Issue(u.ID.Hex(), u.Username, s.now())
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token}, nil
}

// Logout revokes the token the request was authenticated with.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, token, s.now())
}

func (s *Service) Me(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.store.FindUser(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("User doesn't exist!")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, id primitive.ObjectID, in PasswordChange) error {
	if in.OldPassword == "" || in.NewPassword == "" {
		return apperr.Validation("Both old and new passwords are required")
	}
	if len(in.NewPassword) < MinPasswordLength {
		return apperr.Validation("Password must be at least 8 characters")
	}
	u, err := s.Me(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.OldPassword)) != nil {
		return apperr.Unauthorized("Old password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.SetUserPassword(ctx, id, string(hash)); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}
