package export

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"lexhub/api/internal/util"
)

// ArtifactStore persists generated decks to S3-compatible object storage so
// a deck can be re-downloaded without re-rendering.
type ArtifactStore struct {
	client *minio.Client
	bucket string
}

// NewArtifactStore connects to MinIO and ensures the bucket exists.
func NewArtifactStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*ArtifactStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &ArtifactStore{client: client, bucket: bucket}, nil
}

// Put uploads an export result and returns a presigned download URL valid
// for 24 hours.
func (s *ArtifactStore) Put(ctx context.Context, userID string, result *Result) (string, error) {
	objectName := fmt.Sprintf("%s/%s-%s", userID, util.NewID("deck"), result.Filename)

	_, err := s.client.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(result.Data), int64(len(result.Data)),
		minio.PutObjectOptions{ContentType: result.MimeType})
	if err != nil {
		return "", fmt.Errorf("upload artifact: %w", err)
	}

	reqParams := url.Values{}
	reqParams.Set("response-content-disposition", "attachment; filename=\""+result.Filename+"\"")
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, 24*time.Hour, reqParams)
	if err != nil {
		return "", fmt.Errorf("presign artifact: %w", err)
	}
	return presigned.String(), nil
}
