package service

import (
	"context"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/quota"
	"app/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReplayUploadTicket is an initiated upload: the persisted record, the
// presigned destination and the quota decision behind it. On a quota denial
// only the decision is populated, so callers can surface the exact limit and
// remaining capacity.
type ReplayUploadTicket struct {
	Replay    *model.Replay
	UploadURL string
	Decision  quota.Decision
}

// ReplayService handles gameplay replay uploads. Each upload is gated on the
// gameplay add-on's replay quota before a presigned URL is handed out, and
// metered once the upload completes.
type ReplayService interface {
	InitiateUpload(ctx context.Context, userID, filename string) (*ReplayUploadTicket, error)
	CompleteUpload(ctx context.Context, replayID, userID string) (*model.Replay, error)
	GetReplay(ctx context.Context, replayID, userID string) (*model.Replay, error)
}

type replayService struct {
	repo          repository.ReplayRepository
	checker       *quota.Checker
	meter         *quota.Meter
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	logger        zerolog.Logger
}

// NewReplayService creates a new ReplayService.
func NewReplayService(
	repo repository.ReplayRepository,
	checker *quota.Checker,
	meter *quota.Meter,
	s3Client *s3.Client,
	bucketName string,
	logger zerolog.Logger,
) ReplayService {
	return &replayService{
		repo:          repo,
		checker:       checker,
		meter:         meter,
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
		logger:        logger.With().Str("service", "ReplayService").Logger(),
	}
}

// InitiateUpload checks the replay quota, creates a replay record and returns
// a presigned URL for direct upload. Replay analysis is expensive, so the
// check fails closed: no presigned URL without a confirmed quota read.
func (s *replayService) InitiateUpload(ctx context.Context, userID, filename string) (*ReplayUploadTicket, error) {
	decision := s.checker.Check(ctx, userID, quota.KindReplay, 1, quota.FailClosed)
	if !decision.Allowed {
		return &ReplayUploadTicket{Decision: decision}, ErrQuotaExceeded
	}

	replay := &model.Replay{
		ID:       uuid.NewString(),
		UserID:   userID,
		Filename: filename,
		Status:   "uploading",
	}
	replay.StoragePath = fmt.Sprintf("replays/%s/original.replay", replay.ID)
	if err := s.repo.CreateReplay(ctx, replay); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create replay record for upload")
		return nil, fmt.Errorf("failed to create replay record: %w", err)
	}

	presignedURL, err := s.getPresignedPutURL(ctx, replay.StoragePath)
	if err != nil {
		_ = s.repo.DeleteReplay(ctx, replay.ID)
		s.logger.Error().Err(err).Str("replay_id", replay.ID).Msg("Failed to generate presigned PUT URL")
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &ReplayUploadTicket{Replay: replay, UploadURL: presignedURL, Decision: decision}, nil
}

// CompleteUpload marks the replay uploaded and queues the replay increment.
// The increment rides the batch queue: a replay lost to a crash in the flush
// window costs one counter tick, not money.
func (s *replayService) CompleteUpload(ctx context.Context, replayID, userID string) (*model.Replay, error) {
	replay, err := s.repo.GetReplayByID(ctx, replayID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch replay %s: %w", replayID, err)
	}
	if replay == nil {
		return nil, ErrReplayNotFound
	}
	if replay.UserID != userID {
		return nil, ErrUnauthorized
	}

	if err := s.repo.UpdateStatus(ctx, replayID, "uploaded"); err != nil {
		s.logger.Error().Err(err).Str("replay_id", replayID).Msg("Failed to mark replay uploaded")
		return nil, fmt.Errorf("failed to update replay status: %w", err)
	}
	replay.Status = "uploaded"

	s.meter.QueueUsage(userID, quota.Delta{Replays: 1})

	return replay, nil
}

// GetReplay returns a replay owned by the user.
func (s *replayService) GetReplay(ctx context.Context, replayID, userID string) (*model.Replay, error) {
	replay, err := s.repo.GetReplayByID(ctx, replayID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch replay %s: %w", replayID, err)
	}
	if replay == nil || replay.UserID != userID {
		return nil, ErrReplayNotFound
	}
	return replay, nil
}

// getPresignedPutURL generates a presigned URL for uploading an object.
func (s *replayService) getPresignedPutURL(ctx context.Context, objectKey string) (string, error) {
	resp, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("failed to presign PUT for %s: %w", objectKey, err)
	}
	return resp.URL, nil
}
