package main

import (
	"context"
	"log"

	"listings-cms/internal/config"
	"listings-cms/internal/logger"
	"listings-cms/internal/queue"
	"listings-cms/services"

	"github.com/hibiken/asynq"
)

const concurrency = 4

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	addr, password, db := cfg.AsynqRedisAddr()
	redisOpt := asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
		DB:       db,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queue.QueueDefault: 3,
				queue.QueueLow:     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// The worker must share the uploads volume with the API server.
	processor := queue.NewTaskProcessor(cfg.UploadsDir, services.PruneVideos)

	mux := asynq.NewServeMux()
	processor.Register(mux)

	logger.Info("starting asynq worker",
		"concurrency", concurrency,
		"queues", []string{queue.QueueDefault, queue.QueueLow},
		"redis", redisOpt.Addr,
		"uploads_dir", cfg.UploadsDir,
	)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
