package ports

import (
	"context"

	"github.com/calchat/scheduling-system/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password, role, userID string) (*domain.Account, error)
	Login(ctx context.Context, username, password string) (string, *domain.Account, error)
}
