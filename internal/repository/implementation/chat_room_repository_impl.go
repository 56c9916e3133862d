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

// Room metadata is not sharded. It lives on the primary shard so the
// consumer can maintain last-message pointers without a routing directive.
type ChatRoomRepositoryImpl struct {
	cluster *sharding.Cluster
	mapper  *mapper.ChatMapper
}

func NewChatRoomRepository(cluster *sharding.Cluster) contract.ChatRoomRepository {
	return &ChatRoomRepositoryImpl{
		cluster: cluster,
		mapper:  mapper.NewChatMapper(),
	}
}

func (r *ChatRoomRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatRoomRepositoryImpl) Create(ctx context.Context, room *entity.ChatRoom) error {
	m := r.mapper.ChatRoomToModel(room)
	if err := r.cluster.Primary().WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*room = *r.mapper.ChatRoomToEntity(m)
	return nil
}

func (r *ChatRoomRepositoryImpl) Update(ctx context.Context, room *entity.ChatRoom) error {
	m := r.mapper.ChatRoomToModel(room)
	return r.cluster.Primary().WithContext(ctx).Save(m).Error
}

func (r *ChatRoomRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return r.cluster.Primary().WithContext(ctx).Delete(&model.ChatRoom{}, id).Error
}

func (r *ChatRoomRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatRoom, error) {
	var m model.ChatRoom
	query := r.applySpecifications(r.cluster.Primary().WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatRoomToEntity(&m), nil
}

func (r *ChatRoomRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatRoom, error) {
	var models []*model.ChatRoom
	query := r.applySpecifications(r.cluster.Primary().WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatRoom, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatRoomToEntity(m)
	}
	return entities, nil
}

func (r *ChatRoomRepositoryImpl) SetLastMessage(ctx context.Context, roomID int64, messageID int64) error {
	return r.cluster.Primary().WithContext(ctx).
		Model(&model.ChatRoom{}).
		Where("id = ?", roomID).
		Update("last_message_id", messageID).Error
}

func (r *ChatRoomRepositoryImpl) FindDirectRoomBetween(ctx context.Context, userA, userB int64) (*entity.ChatRoom, error) {
	db := r.cluster.Primary().WithContext(ctx)

	var m model.ChatRoom
	err := db.
		Where("kind = ?", string(entity.RoomDirect)).
		Where("id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&model.ChatRoomMember{}).
			Select("room_id").
			Where("user_id IN ?", []int64{userA, userB}).
			Group("room_id").
			Having("COUNT(DISTINCT user_id) = 2")).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatRoomToEntity(&m), nil
}
