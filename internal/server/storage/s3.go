// Package storage keeps uploaded images in an S3 compatible bucket (MinIO in
// development) and hands out the URLs used to fetch them.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		_, err := c.PutObject(ctx, in)
		return err
	}
	deleteObjects = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
		return c.DeleteObjects(ctx, in)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Config describes the bucket.
type Config struct {
	Region        string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	Bucket        string
	PublicBucket  bool
	PublicBaseURL string
	SignedURLTTL  time.Duration
}

type S3Storage struct {
	cfg     Config
	client  *s3.Client
	presign *s3.PresignClient
}

func NewS3Storage(ctx context.Context, cfg Config) (*S3Storage, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Storage{
		cfg:     cfg,
		client:  client,
		presign: s3.NewPresignClient(client),
	}, nil
}

func (s *S3Storage) Bucket() string {
	return s.cfg.Bucket
}

// Put stores data under path.
func (s *S3Storage) Put(ctx context.Context, path, contentType string, data []byte) error {
	err := putObject(s.client, ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	return nil
}

// Remove deletes paths in one request. Missing objects are not an error.
func (s *S3Storage) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	ids := make([]types.ObjectIdentifier, 0, len(paths))
	for _, p := range paths {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(p)})
	}

	out, err := deleteObjects(s.client, ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.cfg.Bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}
	if out != nil && len(out.Errors) > 0 {
		var errs []error
		for _, e := range out.Errors {
			errs = append(errs, fmt.Errorf("%s: %s", aws.ToString(e.Key), aws.ToString(e.Message)))
		}
		return errors.Join(errs...)
	}
	return nil
}

// URL returns where a reader fetches path: the plain public URL for a
// public bucket, a signed URL otherwise.
func (s *S3Storage) URL(ctx context.Context, path string) (string, error) {
	if s.cfg.PublicBucket {
		return s.PublicURL(path), nil
	}
	return s.SignURL(ctx, path)
}

func (s *S3Storage) PublicURL(path string) string {
	base := s.cfg.PublicBaseURL
	if base == "" {
		base = strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket
	}
	return strings.TrimRight(base, "/") + "/" + escapePath(path)
}

// SignURL presigns a GET for path, valid for the configured TTL.
func (s *S3Storage) SignURL(ctx context.Context, path string) (string, error) {
	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(s.cfg.SignedURLTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", path, err)
	}
	return req.URL, nil
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
