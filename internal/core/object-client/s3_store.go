package objectclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/markdave123-py/outreach/internal/config"
	"github.com/markdave123-py/outreach/internal/core"
	"github.com/markdave123-py/outreach/internal/models"
)

// s3API is the subset of *s3.Client the store uses.
type s3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ core.AttachmentStore = (*S3Store)(nil)

type S3Store struct {
	client   s3API
	uploader *manager.Uploader
	bucket   string
}

func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	if cfg.AWS.AccessKey == "" || cfg.AWS.SecretKey == "" {
		return nil, fmt.Errorf("AWS credentials not set")
	}
	if cfg.AWS.Region == "" {
		return nil, fmt.Errorf("AWS_REGION not set")
	}
	if cfg.AWS.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name not set")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKey, cfg.AWS.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
			o.UsePathStyle = true
		}
	})
	log.Printf("S3 attachment store ready (bucket %s)", cfg.AWS.Bucket)

	return newS3StoreWithAPI(client, cfg.AWS.Bucket), nil
}

func newS3StoreWithAPI(api s3API, bucket string) *S3Store {
	return &S3Store{client: api, uploader: manager.NewUploader(api), bucket: bucket}
}

// Save uploads data under a fresh key. If-None-Match keeps an existing
// object from being replaced; a collision retries with a new key.
func (c *S3Store) Save(ctx context.Context, data io.Reader, originalName, mimetype string) (*models.Attachment, error) {
	body, err := io.ReadAll(io.LimitReader(data, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	if int64(len(body)) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key := newObjectKey(originalName, time.Now())
		_, err := c.uploader.Upload(ctxUpload, &s3.PutObjectInput{
			Bucket:      aws.String(c.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(mimetype),
			IfNoneMatch: aws.String("*"),
		})
		if err != nil {
			if hasErrorCode(err, "PreconditionFailed") {
				continue
			}
			return nil, fmt.Errorf("s3 upload failed: %w", err)
		}
		return &models.Attachment{Filename: originalName, Path: key, Mimetype: mimetype}, nil
	}

	return nil, errKeyExhausted
}

func (c *S3Store) Delete(ctx context.Context, location string) error {
	key, err := cleanLocation(location)
	if err != nil {
		return err
	}

	ctxDel, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err = c.client.DeleteObject(ctxDel, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

func (c *S3Store) GetFile(ctx context.Context, location string) ([]byte, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rc, err := c.GetObjectReader(ctxGet, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// GetObjectReader streams the object. The caller closes the reader.
func (c *S3Store) GetObjectReader(ctx context.Context, location string) (io.ReadCloser, error) {
	key, err := cleanLocation(location)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if hasErrorCode(err, "NoSuchKey", "NotFound") {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, location)
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}

	return resp.Body, nil
}

func hasErrorCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}
