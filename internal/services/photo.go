package services

import (
	"context"
	"fmt"
	"time"

	appconfig "matrimony-backend/internal/config"
	"matrimony-backend/internal/models"
	"matrimony-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// PhotoService handles profile photo uploads and guarded listing
type PhotoService struct {
	photoRepo *repository.PhotoRepository
	guard     *PhotoAccessGuard
	s3Client  *s3.Client
	s3Bucket  string
	s3Region  string
}

// NewPhotoService creates a new photo service
func NewPhotoService(
	photoRepo *repository.PhotoRepository,
	guard *PhotoAccessGuard,
	awsCfg appconfig.AWSConfig,
) (*PhotoService, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(awsCfg.Region),
	}
	if awsCfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsCfg.AccessKey, awsCfg.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if awsCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(awsCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &PhotoService{
		photoRepo: photoRepo,
		guard:     guard,
		s3Client:  s3Client,
		s3Bucket:  awsCfg.S3Bucket,
		s3Region:  awsCfg.Region,
	}, nil
}

// UploadResponse represents the response with pre-signed URL
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	PhotoID   string `json:"photo_id"`
	ExpiresIn int    `json:"expires_in"`
}

// GetPreSignedURL generates a pre-signed URL for uploading a profile photo
func (s *PhotoService) GetPreSignedURL(ctx context.Context, userID, contentType string) (*UploadResponse, error) {
	photoID := uuid.New().String()
	s3Key := fmt.Sprintf("users/%s/%s.jpg", userID, photoID)

	presignClient := s3.NewPresignClient(s.s3Client)
	request, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Bucket),
		Key:         aws.String(s3Key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = 5 * time.Minute
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	s3URL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.s3Bucket, s.s3Region, s3Key)
	photo := &models.Photo{
		ID:        photoID,
		UserID:    userID,
		S3URL:     s3URL,
		CreatedAt: time.Now(),
	}

	if err := s.photoRepo.Create(ctx, photo); err != nil {
		return nil, fmt.Errorf("failed to create photo record: %w", err)
	}

	return &UploadResponse{
		UploadURL: request.URL,
		PhotoID:   photoID,
		ExpiresIn: 300,
	}, nil
}

// PhotoListing carries a subject's photos together with the guard decision
// that authorized (or denied) the view
type PhotoListing struct {
	Photos []*models.Photo `json:"photos,omitempty"`
	Access *AccessDecision `json:"access"`
}

// ListUserPhotos retrieves subjectID's photos as seen by viewerID. The
// photo-access guard runs on this path for every viewer; photos are
// omitted when access is denied.
func (s *PhotoService) ListUserPhotos(ctx context.Context, viewerID, subjectID string) (*PhotoListing, error) {
	decision, err := s.guard.HasPhotoAccess(ctx, viewerID, subjectID)
	if err != nil {
		return nil, err
	}
	if !decision.Granted {
		return &PhotoListing{Access: decision}, nil
	}

	photos, err := s.photoRepo.GetByUserID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return &PhotoListing{Photos: photos, Access: decision}, nil
}

// DeletePhoto deletes one of the user's own photos
func (s *PhotoService) DeletePhoto(ctx context.Context, photoID, userID string) error {
	return s.photoRepo.Delete(ctx, photoID, userID)
}
