package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/minpic/core/internal/models"
	"go.uber.org/zap"
)

const defaultRegion = "us-east-1"

// S3Connector builds a fresh aws-sdk-go-v2 client for every Connect call.
type S3Connector struct {
	HTTPClient *http.Client
	Logger     *zap.Logger
	Now        func() time.Time
}

func NewS3Connector(logger *zap.Logger) *S3Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Connector{
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
		Logger:     logger.Named("ObjectStore"),
		Now:        time.Now,
	}
}

// Connect verifies the bucket and creates it when it does not exist yet.
func (c *S3Connector) Connect(ctx context.Context, cfg *models.StorageConfig) (Store, error) {
	store := c.newStore(cfg)
	exists, err := store.bucketExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := store.createBucket(ctx); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
		c.Logger.Info("bucket created", zap.Object("config", cfg))
	}
	return store, nil
}

// Probe checks that the bucket is reachable with the given credentials without
// provisioning anything.
func (c *S3Connector) Probe(ctx context.Context, cfg *models.StorageConfig) error {
	exists, err := c.newStore(cfg).bucketExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}
	return nil
}

func (c *S3Connector) newStore(cfg *models.StorageConfig) *s3Store {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	var creds aws.CredentialsProvider = aws.AnonymousCredentials{}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		creds = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""))
	}
	opts := s3.Options{
		Region:                     region,
		BaseEndpoint:               aws.String(cfg.EndpointURL()),
		UsePathStyle:               true,
		Credentials:                creds,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	}
	if c.HTTPClient != nil {
		opts.HTTPClient = c.HTTPClient
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}
	return &s3Store{client: s3.New(opts), cfg: *cfg, region: region, now: now}
}

type s3Store struct {
	client *s3.Client
	cfg    models.StorageConfig
	region string
	now    func() time.Time
}

func (s *s3Store) bucketExists(ctx context.Context) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *s3Store) createBucket(ctx context.Context) error {
	in := &s3.CreateBucketInput{Bucket: aws.String(s.cfg.Bucket)}
	if s.region != defaultRegion {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	_, err := s.client.CreateBucket(ctx, in)
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return nil
	}
	return err
}

func (s *s3Store) Upload(ctx context.Context, data []byte, suggestedName, mimeType string) (string, error) {
	key := BuildObjectKey(&s.cfg, suggestedName, s.now())
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}
	return key, nil
}

func (s *s3Store) URL(ctx context.Context, key string) (string, error) {
	if s.cfg.CustomDomain != "" {
		return PublicURL(s.cfg.CustomDomain, s.cfg.Bucket, key), nil
	}
	req, err := s3.NewPresignClient(s.client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", key, err)
	}
	return req.URL, nil
}

func (s *s3Store) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

// List walks every page of the bucket recursively. Folder placeholder keys are skipped.
func (s *s3Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.cfg.Bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}
	var objects []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, in)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			objects = append(objects, ObjectInfo{Key: key, Size: aws.ToInt64(obj.Size)})
		}
	}
	return objects, nil
}

func (s *s3Store) Reachable(ctx context.Context) bool {
	ok, err := s.bucketExists(ctx)
	return err == nil && ok
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return true
		}
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
