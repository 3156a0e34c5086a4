package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/zhouzirui/twinchat/backend/internal/config"
	"github.com/zhouzirui/twinchat/backend/internal/model/chat"
)

// ObjectAPI is the subset of the S3 client used by S3Store.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps each transcript as the object <session>.json in one bucket.
type S3Store struct {
	client ObjectAPI
	bucket string
}

// NewS3Store builds an S3 client from cfg. Static credentials are used when
// both keys are set, otherwise the SDK default credential chain applies.
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StoreWithClient(client, cfg.Bucket)
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client ObjectAPI, bucket string) (*S3Store, error) {
	if bucket == "" {
		return nil, errors.New("bucket must be provided")
	}
	return &S3Store{client: client, bucket: bucket}, nil
}

// Backend implements Store.
func (s *S3Store) Backend() string {
	return BackendS3
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if !chat.ValidSessionID(sessionID) {
		return nil, fmt.Errorf("invalid session id %q", sessionID)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectName(sessionID)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return []chat.Message{}, nil
		}
		return nil, fmt.Errorf("get transcript object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read transcript object: %w", err)
	}

	return Decode(data)
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, sessionID string, messages []chat.Message) error {
	if !chat.ValidSessionID(sessionID) {
		return fmt.Errorf("invalid session id %q", sessionID)
	}

	data, err := Encode(messages)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectName(sessionID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put transcript object: %w", err)
	}
	return nil
}

var _ Store = (*S3Store)(nil)
