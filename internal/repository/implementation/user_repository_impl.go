package implementation

import (
	"context"
	"errors"

	"team-messenger-be/internal/entity"
	"team-messenger-be/internal/mapper"
	"team-messenger-be/internal/model"
	"team-messenger-be/internal/repository/contract"
	"team-messenger-be/internal/repository/specification"
	"team-messenger-be/internal/sharding"

	"gorm.io/gorm"
)

// User accounts live on the primary shard only.
type UserRepositoryImpl struct {
	cluster *sharding.Cluster
	mapper  *mapper.UserMapper
}

func NewUserRepository(cluster *sharding.Cluster) contract.UserRepository {
	return &UserRepositoryImpl{
		cluster: cluster,
		mapper:  mapper.NewUserMapper(),
	}
}

func (r *UserRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *entity.User) error {
	m := r.mapper.UserToModel(user)
	if err := r.cluster.Primary().WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*user = *r.mapper.UserToEntity(m)
	return nil
}

func (r *UserRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	var m model.User
	query := r.applySpecifications(r.cluster.Primary().WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.UserToEntity(&m), nil
}

func (r *UserRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	var models []*model.User
	query := r.applySpecifications(r.cluster.Primary().WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.User, len(models))
	for i, m := range models {
		entities[i] = r.mapper.UserToEntity(m)
	}
	return entities, nil
}

func (r *UserRepositoryImpl) FindByIds(ctx context.Context, ids []int64) ([]*entity.User, error) {
	var models []*model.User
	err := r.cluster.Primary().WithContext(ctx).Where("id IN ?", ids).Find(&models).Error
	if err != nil {
		return nil, err
	}
	entities := make([]*entity.User, len(models))
	for i, m := range models {
		entities[i] = r.mapper.UserToEntity(m)
	}
	return entities, nil
}
