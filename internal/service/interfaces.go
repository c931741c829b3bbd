package service

import (
	"context"

	"github.com/rryowa/session_keeper/internal/models"
)

// AuthService is the external auth service as seen by the session.
type AuthService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error)
	Refresh(ctx context.Context) (*models.LoginResponse, error)
	Logout(ctx context.Context) error
}
