package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrMissingBucket is returned when an S3 sink has no bucket.
var ErrMissingBucket = errors.New("s3 bucket is required")

// S3API is the subset of the S3 client used by S3Sink.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Options configures the S3 client.
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client builds an S3 client. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies. A custom
// endpoint switches to path-style addressing for S3-compatible stores.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error

	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return client, nil
}

// S3Sink stores artifacts as objects under <prefix>/<server>/<project>/.
type S3Sink struct {
	Client  S3API
	Bucket  string
	Prefix  string
	Staging string
}

var _ Sink = (*S3Sink)(nil)

// Key returns the object key for name.
func (s *S3Sink) Key(name string) string {
	return path.Join(s.Prefix, name)
}

// Location implements Sink.
func (s *S3Sink) Location(name string) string {
	return "s3://" + s.Bucket + "/" + s.Key(name)
}

// Prepare implements Sink by checking that the bucket is reachable.
func (s *S3Sink) Prepare(ctx context.Context) error {
	if s.Bucket == "" {
		return ErrMissingBucket
	}

	_, err := s.Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.Bucket)})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", s.Bucket, err)
	}

	return nil
}

// StagingDir implements Sink.
func (s *S3Sink) StagingDir() string {
	return s.Staging
}

// Open implements Sink.
func (s *S3Sink) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key(name)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%s: %w", s.Location(name), fs.ErrNotExist)
		}

		return nil, fmt.Errorf("get object: %w", err)
	}

	return out.Body, nil
}

// Commit implements Sink. S3 objects appear atomically once PutObject returns.
func (s *S3Sink) Commit(ctx context.Context, stagedPath, name string) error {
	f, err := os.Open(stagedPath)
	if err != nil {
		return fmt.Errorf("open staged artifact: %w", err)
	}
	defer f.Close()

	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key(name)),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	f.Close()

	err = os.Remove(stagedPath)
	if err != nil {
		return fmt.Errorf("remove staged artifact: %w", err)
	}

	return nil
}
