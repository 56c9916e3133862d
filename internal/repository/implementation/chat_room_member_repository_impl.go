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

type ChatRoomMemberRepositoryImpl struct {
	cluster *sharding.Cluster
	mapper  *mapper.ChatMapper
}

func NewChatRoomMemberRepository(cluster *sharding.Cluster) contract.ChatRoomMemberRepository {
	return &ChatRoomMemberRepositoryImpl{
		cluster: cluster,
		mapper:  mapper.NewChatMapper(),
	}
}

func (r *ChatRoomMemberRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatRoomMemberRepositoryImpl) Create(ctx context.Context, member *entity.ChatRoomMember) error {
	m := r.mapper.ChatRoomMemberToModel(member)
	if err := r.cluster.Primary().WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*member = *r.mapper.ChatRoomMemberToEntity(m)
	return nil
}

func (r *ChatRoomMemberRepositoryImpl) Update(ctx context.Context, member *entity.ChatRoomMember) error {
	m := r.mapper.ChatRoomMemberToModel(member)
	return r.cluster.Primary().WithContext(ctx).Save(m).Error
}

func (r *ChatRoomMemberRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return r.cluster.Primary().WithContext(ctx).Delete(&model.ChatRoomMember{}, id).Error
}

func (r *ChatRoomMemberRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatRoomMember, error) {
	var m model.ChatRoomMember
	query := r.applySpecifications(r.cluster.Primary().WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatRoomMemberToEntity(&m), nil
}

func (r *ChatRoomMemberRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatRoomMember, error) {
	var models []*model.ChatRoomMember
	query := r.applySpecifications(r.cluster.Primary().WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatRoomMember, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatRoomMemberToEntity(m)
	}
	return entities, nil
}

func (r *ChatRoomMemberRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.cluster.Primary().WithContext(ctx).Model(&model.ChatRoomMember{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
