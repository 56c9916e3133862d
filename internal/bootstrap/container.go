package bootstrap

import (
	"context"
	"log"

	"team-messenger-be/internal/config"
	"team-messenger-be/internal/controller"
	"team-messenger-be/internal/pkg/logger"
	"team-messenger-be/internal/repository/implementation"
	"team-messenger-be/internal/service"
	"team-messenger-be/internal/sharding"
	"team-messenger-be/internal/websocket"
	"team-messenger-be/pkg/chatlog"
	"team-messenger-be/pkg/database"

	pktNats "team-messenger-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatMessageController  controller.IChatMessageController
	ChatRoomController     controller.IChatRoomController
	PresenceController     controller.IPresenceController
	NotificationController controller.INotificationController

	// Background Services (Exposed for main.go to run)
	ConsumerService     service.IChatConsumerService
	NotificationService service.INotificationService

	// WebSockets
	WebSocketHub    *websocket.Hub
	ProducerService service.IChatProducerService
	PresenceService service.IPresenceService

	Cluster *sharding.Cluster
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Shard Cluster
	if len(cfg.Database.ShardDSNs) == 0 {
		log.Fatal("[FATAL] DB_SHARD_DSNS is empty, at least one shard DSN is required")
	}
	shards := make([]*gorm.DB, 0, len(cfg.Database.ShardDSNs))
	for i, dsn := range cfg.Database.ShardDSNs {
		db, err := database.NewGormDBFromDSN(dsn)
		if err != nil {
			log.Fatalf("[FATAL] Unable to connect to shard %d: %v", i, err)
		}
		shards = append(shards, db)
	}
	cluster, err := sharding.NewCluster(shards)
	if err != nil {
		log.Fatalf("[FATAL] Failed to build shard cluster: %v", err)
	}

	// 3. Delivery Log
	watermillLogger := watermill.NewStdLogger(false, false)
	deliveryLog := chatlog.New(cfg.ChatLog.Topic, cfg.ChatLog.Partitions, watermillLogger)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// 5. WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/delivery.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 6. Repositories
	messageRepo := implementation.NewChatMessageRepository(cluster)
	roomRepo := implementation.NewChatRoomRepository(cluster)
	memberRepo := implementation.NewChatRoomMemberRepository(cluster)
	userRepo := implementation.NewUserRepository(cluster)
	notificationRepo := implementation.NewNotificationRepository(cluster.Primary())

	// 7. Services
	presenceService := service.NewPresenceService(rdb, sysLogger)
	producerService := service.NewChatProducerService(deliveryLog, sysLogger)

	// A nil *Publisher stored in the interface would dodge the consumer's
	// nil check, so only assign it when the connection came up.
	var eventPub service.EventPublisher
	if natsPub != nil {
		eventPub = natsPub
	}
	consumerService := service.NewChatConsumerService(
		deliveryLog,
		cfg.ChatLog.Workers,
		messageRepo,
		roomRepo,
		memberRepo,
		userRepo,
		wsHub,
		eventPub,
		sysLogger,
	)
	messageService := service.NewMessageService(messageRepo, memberRepo, userRepo, cluster, sysLogger)
	roomService := service.NewRoomService(
		roomRepo,
		memberRepo,
		userRepo,
		messageService,
		messageRepo,
		presenceService,
		consumerService,
		sysLogger,
	)
	notificationService := service.NewNotificationService(notificationRepo, natsSub, sysLogger)

	// 8. Controllers
	return &Container{
		ChatMessageController:  controller.NewChatMessageController(producerService, messageService),
		ChatRoomController:     controller.NewChatRoomController(roomService),
		PresenceController:     controller.NewPresenceController(presenceService),
		NotificationController: controller.NewNotificationController(notificationService),

		ConsumerService:     consumerService,
		NotificationService: notificationService,

		WebSocketHub:    wsHub,
		ProducerService: producerService,
		PresenceService: presenceService,

		Cluster: cluster,
	}
}
