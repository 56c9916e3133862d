package main

import (
	"log"

	"team-messenger-be/internal/config"
	"team-messenger-be/internal/model"
	"team-messenger-be/pkg/database"
)

// Messages are migrated on every shard; everything else lives only on the
// primary (shard 0).
func main() {
	cfg := config.Load()

	if len(cfg.Database.ShardDSNs) == 0 {
		log.Fatal("DB_SHARD_DSNS is empty, nothing to migrate")
	}

	for i, dsn := range cfg.Database.ShardDSNs {
		db, err := database.NewGormDBFromDSN(dsn)
		if err != nil {
			log.Fatalf("Unable to connect to shard %d: %v", i, err)
		}

		if err := db.AutoMigrate(&model.ChatMessage{}); err != nil {
			log.Fatalf("Failed to migrate chat_messages on shard %d: %v", i, err)
		}
		log.Printf("Migrated chat_messages on shard %d", i)

		if i == 0 {
			if err := db.AutoMigrate(
				&model.User{},
				&model.ChatRoom{},
				&model.ChatRoomMember{},
				&model.Notification{},
			); err != nil {
				log.Fatalf("Failed to migrate primary tables: %v", err)
			}
			log.Println("Migrated users, chat_rooms, chat_room_members, notifications on primary")
		}
	}

	log.Println("✅ Migration complete")
}
