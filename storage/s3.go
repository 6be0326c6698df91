package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// defaultConcurrency bounds parallel transfers per directory operation.
const defaultConcurrency = 8

// s3API is the subset of *s3.Client the store uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Options configures an S3-compatible store. Endpoint is set for R2,
// MinIO and similar services; empty means AWS.
type S3Options struct {
	Bucket      string
	Endpoint    string
	Region      string
	AccessKey   string
	SecretKey   string
	Concurrency int
}

// S3 is an ObjectStore on an S3-compatible bucket.
type S3 struct {
	logger      *zap.Logger
	client      s3API
	bucket      string
	concurrency int
}

// NewS3 creates an S3 store. Static credentials are used when both keys are
// set, otherwise the default AWS credential chain applies.
func NewS3(ctx context.Context, logger *zap.Logger, opts S3Options) (*S3, error) {
	region := opts.Region
	if region == "" {
		region = "auto"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
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

	logger.Info("using s3 object store",
		zap.String("bucket", opts.Bucket),
		zap.String("endpoint", opts.Endpoint),
		zap.String("region", region))

	return newS3WithClient(logger, client, opts.Bucket, opts.Concurrency), nil
}

func newS3WithClient(logger *zap.Logger, client s3API, bucket string, concurrency int) *S3 {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &S3{logger: logger, client: client, bucket: bucket, concurrency: concurrency}
}

// UploadDirectory puts every file under localPath at prefix/<relative path>.
func (s *S3) UploadDirectory(ctx context.Context, localPath, prefix string) error {
	files, err := collectUploads(localPath, prefix)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, f := range files {
		g.Go(func() error {
			return s.putFile(gctx, f)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("uploaded directory",
		zap.String("prefix", prefix),
		zap.Int("files", len(files)))
	return nil
}

func (s *S3) putFile(ctx context.Context, f localFile) error {
	body, err := os.Open(f.abs)
	if err != nil {
		return fmt.Errorf("upload %s: %w", f.key, err)
	}
	defer body.Close()

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(f.key),
		Body:   body,
	}); err != nil {
		return fmt.Errorf("upload %s: %w", f.key, err)
	}
	return nil
}

// DownloadDirectory fetches every object under prefix into localPath.
func (s *S3) DownloadDirectory(ctx context.Context, prefix, localPath string) error {
	dir := dirPrefix(prefix)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(dir),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	count := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			_ = g.Wait()
			return fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			dst, err := destination(localPath, dir, key)
			if err != nil {
				_ = g.Wait()
				return err
			}
			if dst == "" {
				continue
			}
			count++
			g.Go(func() error {
				return s.getFile(gctx, key, dst)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("download %s: %w", prefix, ErrNotFound)
	}

	s.logger.Info("downloaded directory",
		zap.String("prefix", prefix),
		zap.Int("files", count))
	return nil
}

func (s *S3) getFile(ctx context.Context, key, dst string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", key, mapNotFound(err))
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("download %s: %w", key, err)
	}
	return f.Close()
}

// Exists reports whether key is present in the bucket.
func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(mapNotFound(err), ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("head %s: %w", key, err)
}

// Download returns the object at key.
func (s *S3) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, mapNotFound(err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return data, nil
}

func mapNotFound(err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return ErrNotFound
	}
	return err
}
