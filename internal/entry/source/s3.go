package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// ObjectGetter is the part of *s3.Client used here.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds a client from the default AWS credential chain. A
// custom endpoint (MinIO, localstack) switches to path-style addressing.
func NewS3Client(ctx context.Context, cfg config.SourceConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3 reads the artifact from an object.
type S3 struct {
	Client ObjectGetter
	Bucket string
	Key    string
}

func (s *S3) Name() string { return "s3://" + s.Bucket + "/" + s.Key }

func (s *S3) Load(ctx context.Context) ([]entry.Entry, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, unavailable(s.Name(), fmt.Errorf("object not found: %w", err))
		}
		return nil, unavailable(s.Name(), err)
	}
	defer out.Body.Close()
	entries, err := entry.Decode(out.Body)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return nil, fmt.Errorf("loading %s: %w", s.Name(), err)
		}
		return nil, unavailable(s.Name(), err)
	}
	return entries, nil
}
