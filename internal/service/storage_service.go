package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StorageService stores payment proof images and serves them back to the
// admin console through short-lived presigned URLs. The database keeps the
// object key, never a signed URL.
type StorageService interface {
	UploadProof(ctx context.Context, userID, filename string, content []byte, contentType string) (storagePath string, err error)
	GetPresignedURL(ctx context.Context, storagePath string) (string, error)
}

type storageService struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	storageLogger zerolog.Logger
}

// NewStorageService creates a new StorageService.
func NewStorageService(s3Client *s3.Client, bucketName string, logger zerolog.Logger) StorageService {
	return &storageService{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
		storageLogger: logger.With().Str("service", "StorageService").Logger(),
	}
}

// UploadProof writes the proof image under proofs/<userID>/ with a random
// object name, keeping the original extension.
func (s *storageService) UploadProof(ctx context.Context, userID, filename string, content []byte, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	storagePath := fmt.Sprintf("proofs/%s/%s%s", userID, uuid.NewString(), ext)

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(storagePath),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.storageLogger.Error().Err(err).Str("storage_path", storagePath).Msg("Failed to upload payment proof")
		return "", fmt.Errorf("failed to upload payment proof: %w", err)
	}
	return storagePath, nil
}

// GetPresignedURL generates a signed URL for the given storage path
func (s *storageService) GetPresignedURL(ctx context.Context, storagePath string) (string, error) {
	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(storagePath),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		s.storageLogger.Error().Err(err).Str("storage_path", storagePath).Msg("Failed to generate presigned URL")
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return resp.URL, nil
}
