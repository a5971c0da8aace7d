//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/fieldmap-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	aoi := flag.String("aoi", "-105.642662,39.91758,-105.631343,39.92925", "bbox or GeoJSON file")
	zooms := flag.String("zooms", "12-14", "zoom levels")
	output := flag.String("output", "test.mbtiles", "archive file")
	source := flag.String("source", "esri", "imagery source")
	flag.Parse()

	client := redis.NewClient(&redis.Options{
		Addr: *redisAddr,
	})
	defer client.Close()

	ctx := context.Background()

	// Проверка подключения
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	event := domain.BasemapRequestEvent{
		JobID:   uuid.New(),
		AOI:     *aoi,
		Zooms:   *zooms,
		Source:  *source,
		Output:  *output,
		Created: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	// Публикация в стрим
	result, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: domain.StreamBasemapRequest,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish event: %v", err)
	}

	fmt.Printf("Event published\n")
	fmt.Printf("   Stream: %s\n", domain.StreamBasemapRequest)
	fmt.Printf("   Message ID: %s\n", result)
	fmt.Printf("   Job ID: %s\n", event.JobID)
	fmt.Printf("   AOI: %s, zooms %s -> %s\n", event.AOI, event.Zooms, event.Output)

	fmt.Printf("\nWaiting for response in %s...\n", domain.StreamBasemapDone)

	// Сборка подложки может идти долго
	timeout := time.After(10 * time.Minute)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			fmt.Println("Timeout waiting for response")
			return
		case <-ticker.C:
			results, err := client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{domain.StreamBasemapDone, "0"},
				Count:   100,
				Block:   time.Second,
			}).Result()
			if err != nil && err != redis.Nil {
				continue
			}

			for _, stream := range results {
				for _, msg := range stream.Messages {
					dataStr, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}

					var done domain.BasemapDoneEvent
					if err := json.Unmarshal([]byte(dataStr), &done); err != nil {
						continue
					}
					if done.JobID != event.JobID {
						continue
					}

					fmt.Printf("\nResponse received\n")
					prettyJSON, _ := json.MarshalIndent(done, "", "  ")
					fmt.Printf("%s\n", prettyJSON)
					return
				}
			}
		}
	}
}
