package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"autopark-notifier/common/config"
	rediscommon "autopark-notifier/common/redis"
	"autopark-notifier/internal/consumer"
)

// 用法: go run ./scripts/emit <path> <before-json> <after-json>
// 例如: go run ./scripts/emit /devices/D1/ts 1000 30000000
func main() {
	if len(os.Args) != 4 {
		log.Fatalf("usage: %s <path> <before-json> <after-json>", os.Args[0])
	}

	before, after := json.RawMessage(os.Args[2]), json.RawMessage(os.Args[3])
	for _, raw := range []json.RawMessage{before, after} {
		if !json.Valid(raw) {
			log.Fatalf("Invalid JSON snapshot: %s", raw)
		}
	}

	event, err := consumer.NewChangeEvent(os.Args[1], before, after)
	if err != nil {
		log.Fatalf("Invalid change: %v", err)
	}

	ctx := context.Background()
	redisCfg := &config.RedisConfig{Addr: "localhost:6379"}
	redisCfg.LoadFromEnv("REDIS")
	client, err := rediscommon.NewRedisClient(ctx, redisCfg)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer client.Close()

	stream := getEnv("TRIGGER_STREAM", "autopark:device-changes")
	id, err := consumer.PublishChange(ctx, client, stream, event)
	if err != nil {
		log.Fatalf("Failed to publish change: %v", err)
	}
	fmt.Printf("✅ Published %s to %s (id=%s)\n", event.Path, stream, id)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
