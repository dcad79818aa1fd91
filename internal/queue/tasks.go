package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"listings-cms/internal/logger"
)

const (
	TaskPruneVideos = "video:prune"

	QueueDefault = "default"
	QueueLow     = "low"
)

type PruneVideosPayload struct {
	// Keep is the file name of the video now referenced by the settings.
	Keep string `json:"keep"`
}

// Task creators
func NewPruneVideosTask(keep string) (*asynq.Task, error) {
	payload, err := json.Marshal(PruneVideosPayload{Keep: keep})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskPruneVideos,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Queue(QueueLow),
	), nil
}

// Enqueuer is the part of *asynq.Client the producer needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Producer enqueues background tasks from the API server.
type Producer struct {
	client Enqueuer
}

func NewProducer(client Enqueuer) *Producer {
	return &Producer{client: client}
}

// EnqueuePrune schedules deletion of videos uploaded before keep. Repeated
// calls for the same file within an hour collapse into one task.
func (p *Producer) EnqueuePrune(ctx context.Context, keep string) error {
	task, err := NewPruneVideosTask(keep)
	if err != nil {
		return err
	}
	info, err := p.client.EnqueueContext(ctx, task, asynq.Unique(time.Hour))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskPruneVideos, err)
	}
	logger.Debug("task enqueued", "type", TaskPruneVideos, "id", info.ID, "queue", info.Queue)
	return nil
}

// PruneFunc deletes superseded videos in dir and returns the removed names.
type PruneFunc func(dir, keep string) ([]string, error)

// Task handlers
type TaskProcessor struct {
	uploadsDir string
	prune      PruneFunc
}

func NewTaskProcessor(uploadsDir string, prune PruneFunc) *TaskProcessor {
	return &TaskProcessor{
		uploadsDir: uploadsDir,
		prune:      prune,
	}
}

func (p *TaskProcessor) PruneVideos(ctx context.Context, t *asynq.Task) error {
	var payload PruneVideosPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}
	if payload.Keep == "" {
		return fmt.Errorf("empty keep file: %w", asynq.SkipRetry)
	}

	removed, err := p.prune(p.uploadsDir, payload.Keep)
	if err != nil {
		return err
	}

	logger.Info("pruned superseded videos", "keep", payload.Keep, "removed", len(removed))
	return nil
}

// Register wires all handlers onto mux.
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskPruneVideos, p.PruneVideos)
}
