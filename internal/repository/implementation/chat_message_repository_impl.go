package implementation

import (
	"context"
	"errors"
	"time"

	"team-messenger-be/internal/entity"
	"team-messenger-be/internal/mapper"
	"team-messenger-be/internal/model"
	"team-messenger-be/internal/repository/contract"
	"team-messenger-be/internal/repository/specification"
	"team-messenger-be/internal/sharding"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatMessageRepositoryImpl is the only repository whose table is sharded.
// Every call resolves its physical store through the cluster, which reads the
// routing directive on ctx; an absent directive lands on the default shard.
type ChatMessageRepositoryImpl struct {
	cluster *sharding.Cluster
	mapper  *mapper.ChatMapper
}

func NewChatMessageRepository(cluster *sharding.Cluster) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		cluster: cluster,
		mapper:  mapper.NewChatMapper(),
	}
}

func (r *ChatMessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatMessageRepositoryImpl) Create(ctx context.Context, message *entity.ChatMessage) error {
	db, err := r.cluster.DB(ctx)
	if err != nil {
		return err
	}

	m := r.mapper.ChatMessageToModel(message)
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return res.Error
	}

	// Redelivered event: the row already exists under this event id. Load it
	// so the caller still sees the persisted identity and timestamps.
	if res.RowsAffected == 0 {
		var existing model.ChatMessage
		if err := db.WithContext(ctx).Where("event_id = ?", m.EventId).First(&existing).Error; err != nil {
			return err
		}
		m = &existing
	}

	*message = *r.mapper.ChatMessageToEntity(m)
	return nil
}

func (r *ChatMessageRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	db, err := r.cluster.DB(ctx)
	if err != nil {
		return nil, err
	}

	var m model.ChatMessage
	query := r.applySpecifications(db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatMessageToEntity(&m), nil
}

func (r *ChatMessageRepositoryImpl) LatestByRoom(ctx context.Context, roomID int64) (*entity.ChatMessage, error) {
	return r.FindOne(ctx,
		specification.ByRoomID{RoomID: roomID},
		specification.OrderBy{Field: "sent_at", Desc: true},
	)
}

func (r *ChatMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	db, err := r.cluster.DB(ctx)
	if err != nil {
		return nil, err
	}

	var models []*model.ChatMessage
	query := r.applySpecifications(db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatMessage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatMessageToEntity(m)
	}
	return entities, nil
}

func (r *ChatMessageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	db, err := r.cluster.DB(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	query := r.applySpecifications(db.WithContext(ctx).Model(&model.ChatMessage{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ChatMessageRepositoryImpl) FindOnShard(ctx context.Context, shard int, senderID int64, start, end time.Time) ([]*entity.ChatMessage, error) {
	db, err := r.cluster.Shard(shard)
	if err != nil {
		return nil, err
	}

	var models []*model.ChatMessage
	query := r.applySpecifications(db.WithContext(ctx),
		specification.BySenderID{SenderID: senderID},
		specification.SentBetween{Start: start, End: end},
		specification.OrderBy{Field: "sent_at"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	entities := make([]*entity.ChatMessage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatMessageToEntity(m)
	}
	return entities, nil
}
