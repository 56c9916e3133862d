package contract

import (
	"context"

	"team-messenger-be/internal/entity"
	"team-messenger-be/internal/repository/specification"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error)
	FindByIds(ctx context.Context, ids []int64) ([]*entity.User, error)
}
