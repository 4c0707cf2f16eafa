package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"autopark-notifier/common/config"
	"autopark-notifier/common/database"
	rediscommon "autopark-notifier/common/redis"
	"autopark-notifier/internal/models"
	"autopark-notifier/internal/repository"

	"go.uber.org/zap"
)

// 用法: go run ./scripts/check <deviceId> [deviceId...]
// 打印设备名称、车位占用者以及每个占用者是否可投递
func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <deviceId> [deviceId...]", os.Args[0])
	}
	ctx := context.Background()

	var store repository.Store
	switch getEnv("STORE_BACKEND", "redis") {
	case "postgres":
		dbCfg := &config.DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Database: "autopark",
			SSLMode:  "disable",
		}
		dbCfg.LoadFromEnv("DB")
		db, err := database.NewPostgresDB(ctx, dbCfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		store = repository.NewPostgresStore(db, zap.NewNop())
	default:
		redisCfg := &config.RedisConfig{Addr: "localhost:6379"}
		redisCfg.LoadFromEnv("REDIS")
		client, err := rediscommon.NewRedisClient(ctx, redisCfg)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		store = repository.NewRedisStore(repository.NewRedisKVStore(client), getEnv("STORE_KEY_PREFIX", "autopark:"), zap.NewNop())
	}

	for _, deviceID := range os.Args[1:] {
		fmt.Printf("Device: %s\n", deviceID)

		if name, err := notificationName(ctx, store, deviceID); err != nil {
			fmt.Printf("  ⚠️  no name (%v), notifications use %q\n", err, name)
		} else {
			fmt.Printf("  name: %s\n", name)
		}

		slots, err := store.GetSlots(ctx, deviceID)
		if err != nil {
			log.Printf("Failed to read slots: %v", err)
			continue
		}
		fmt.Printf("  slots: %d\n", len(slots))

		for _, slot := range slots {
			if !slot.Occupied() {
				fmt.Printf("    %s: empty\n", slot.Key)
				continue
			}
			fmt.Printf("    %s: user=%s checkInTime=%s\n", slot.Key, slot.UserID, slot.CheckInTime.String())

			user, err := store.GetUser(ctx, slot.UserID)
			if err != nil {
				fmt.Printf("      ❌ user not readable: %v\n", err)
				continue
			}
			if _, ok := user.DeliveryToken(); ok {
				fmt.Printf("      ✅ has push token - can be notified\n")
			} else {
				fmt.Printf("      ❌ NO push token - CANNOT be notified\n")
			}
		}

		fmt.Println("\n" + strings.Repeat("-", 80) + "\n")
	}
}

// notificationName 通知中显示的设备名；读取失败时返回与分发器相同的回退标签
func notificationName(ctx context.Context, store repository.Store, deviceID string) (string, error) {
	name, err := store.GetDeviceName(ctx, deviceID)
	if err != nil || name == "" {
		return models.StationLabel(deviceID), err
	}
	return name, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
