package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/time/rate"

	"listings-cms/internal/logger"
	"listings-cms/models"
)

var (
	ErrInvalidVideoType = errors.New("invalid video type")
	ErrVideoTooLarge    = errors.New("video exceeds size limit")
	ErrNoVideoFields    = errors.New("no video or phone number provided")
	ErrUploadThrottled  = errors.New("too many uploads")
)

// allowedVideoTypes maps accepted content types to the stored file extension.
var allowedVideoTypes = map[string]string{
	"video/mp4":  "mp4",
	"video/webm": "webm",
	"video/ogg":  "ogg",
}

const videoURLPrefix = "/uploads/"

// SettingsStore is the singleton persistence the video service needs.
// *store.Singleton[models.VideoSettings] satisfies it.
type SettingsStore interface {
	Load(ctx context.Context, defaults bson.M) (*models.VideoSettings, error)
	Save(ctx context.Context, set, defaults bson.M) (*models.VideoSettings, error)
}

// PruneEnqueuer schedules removal of video files superseded by keep.
type PruneEnqueuer interface {
	EnqueuePrune(ctx context.Context, keep string) error
}

// UploadRecorder counts upload outcomes. telemetry.Metrics satisfies it.
type UploadRecorder interface {
	RecordVideoUpload(status string)
}

// VideoUpload is a file part taken from the multipart form.
type VideoUpload struct {
	ContentType string
	Size        int64
	Content     io.Reader
}

// UpdateVideoCommand changes the banner. At least one field must be set.
type UpdateVideoCommand struct {
	PhoneNumber *string
	Video       *VideoUpload
}

type VideoOptions struct {
	UploadsDir   string
	MaxSize      int64
	DefaultPhone string
	// UploadRate is uploads per second; zero disables throttling.
	UploadRate float64
	Pruner     PruneEnqueuer
	Recorder   UploadRecorder
}

type VideoService struct {
	settings     SettingsStore
	uploadsDir   string
	maxSize      int64
	defaultPhone string
	limiter      *rate.Limiter
	pruner       PruneEnqueuer
	recorder     UploadRecorder
	now          func() time.Time
}

func NewVideoService(settings SettingsStore, opts VideoOptions) *VideoService {
	var limiter *rate.Limiter
	if opts.UploadRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.UploadRate), 1)
	}
	return &VideoService{
		settings:     settings,
		uploadsDir:   opts.UploadsDir,
		maxSize:      opts.MaxSize,
		defaultPhone: opts.DefaultPhone,
		limiter:      limiter,
		pruner:       opts.Pruner,
		recorder:     opts.Recorder,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *VideoService) defaults() bson.M {
	return bson.M{
		"videoUrl":    "",
		"phoneNumber": s.defaultPhone,
		"updatedAt":   s.now(),
	}
}

// Get returns the banner settings, creating the default document on first read.
func (s *VideoService) Get(ctx context.Context) (*models.VideoSettings, error) {
	return s.settings.Load(ctx, s.defaults())
}

// Validate checks the command without touching the filesystem or the store.
func (s *VideoService) Validate(cmd UpdateVideoCommand) error {
	phoneSet := cmd.PhoneNumber != nil && strings.TrimSpace(*cmd.PhoneNumber) != ""
	if cmd.Video == nil && !phoneSet {
		return ErrNoVideoFields
	}
	if cmd.Video == nil {
		return nil
	}
	if _, ok := allowedVideoTypes[mediaType(cmd.Video.ContentType)]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidVideoType, cmd.Video.ContentType)
	}
	if s.maxSize > 0 && cmd.Video.Size > s.maxSize {
		return fmt.Errorf("%w: %d bytes", ErrVideoTooLarge, cmd.Video.Size)
	}
	return nil
}

// Update validates cmd, stores the video file if present and saves the settings.
func (s *VideoService) Update(ctx context.Context, cmd UpdateVideoCommand) (*models.VideoSettings, error) {
	if err := s.Validate(cmd); err != nil {
		s.record("rejected")
		return nil, err
	}

	set := bson.M{"updatedAt": s.now()}
	if cmd.PhoneNumber != nil && strings.TrimSpace(*cmd.PhoneNumber) != "" {
		set["phoneNumber"] = strings.TrimSpace(*cmd.PhoneNumber)
	}

	var written string
	if cmd.Video != nil {
		if s.limiter != nil && !s.limiter.Allow() {
			s.record("throttled")
			return nil, ErrUploadThrottled
		}
		name, err := s.writeVideo(cmd.Video)
		if err != nil {
			s.record("failed")
			return nil, err
		}
		written = name
		set["videoUrl"] = videoURLPrefix + name
	}

	settings, err := s.settings.Save(ctx, set, s.defaults())
	if err != nil {
		if written != "" {
			s.removeUpload(written)
		}
		s.record("failed")
		return nil, err
	}

	if written != "" {
		s.record("stored")
		if s.pruner != nil {
			if err := s.pruner.EnqueuePrune(ctx, written); err != nil {
				logger.Warn("failed to enqueue video prune", "keep", written, "error", err)
			}
		}
	}
	return settings, nil
}

// CurrentFile returns the file name behind the stored videoUrl, or "" when none is set.
func (s *VideoService) CurrentFile(ctx context.Context) (string, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(settings.VideoURL, videoURLPrefix), nil
}

func (s *VideoService) UploadsDir() string {
	return s.uploadsDir
}

func (s *VideoService) writeVideo(v *VideoUpload) (string, error) {
	if err := os.MkdirAll(s.uploadsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	ext := allowedVideoTypes[mediaType(v.ContentType)]
	name := fmt.Sprintf("video-%d.%s", s.now().UnixMilli(), ext)
	path := filepath.Join(s.uploadsDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	src := v.Content
	if s.maxSize > 0 {
		src = io.LimitReader(v.Content, s.maxSize+1)
	}
	n, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()

	switch {
	case copyErr != nil:
		os.Remove(path)
		return "", fmt.Errorf("failed to save file: %w", copyErr)
	case closeErr != nil:
		os.Remove(path)
		return "", fmt.Errorf("failed to save file: %w", closeErr)
	case s.maxSize > 0 && n > s.maxSize:
		os.Remove(path)
		return "", fmt.Errorf("%w: more than %d bytes", ErrVideoTooLarge, s.maxSize)
	}
	return name, nil
}

func (s *VideoService) removeUpload(name string) {
	if err := os.Remove(filepath.Join(s.uploadsDir, name)); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove orphaned upload", "file", name, "error", err)
	}
}

func (s *VideoService) record(status string) {
	if s.recorder != nil {
		s.recorder.RecordVideoUpload(status)
	}
}

// mediaType drops parameters such as "; codecs=..." from a content type.
func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
