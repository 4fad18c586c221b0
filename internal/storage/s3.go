package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/webstorehq/storeadmin/config"
	"github.com/webstorehq/storeadmin/pkg/common"
)

// UploadSlot is what a client needs to push one object directly to the
// store: a short-lived write URL, the server-chosen key, and the public
// URL the object will be reachable at afterwards.
type UploadSlot struct {
	PresignedURL string `json:"presignedUrl"`
	Key          string `json:"key"`
	URL          string `json:"url"`
}

// Gateway wraps the S3-compatible object store. It is constructed once
// at process start and injected wherever object access is needed.
type Gateway struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	publicURL string
	uploadTTL time.Duration
	readTTL   time.Duration
}

func NewGateway(ctx context.Context, cfg config.StorageConfig) (*Gateway, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "load storage credentials")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	uploadTTL := time.Duration(cfg.UploadTTL) * time.Second
	if uploadTTL <= 0 {
		uploadTTL = 6 * time.Minute
	}
	readTTL := time.Duration(cfg.ReadTTL) * time.Second
	if readTTL <= 0 {
		readTTL = 15 * time.Minute
	}

	return &Gateway{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		uploadTTL: uploadTTL,
		readTTL:   readTTL,
	}, nil
}

// NewObjectKey derives a globally unique key from a client file name.
// Keys are always server-generated; accepting caller keys would allow
// overwriting other tenants' objects.
func (g *Gateway) NewObjectKey(fileName string) string {
	return fmt.Sprintf("%s-%s", uuid.NewString(), common.SanitizeFileName(fileName))
}

// PublicURL returns the storefront-facing URL for a key.
func (g *Gateway) PublicURL(key string) string {
	return g.publicURL + "/" + key
}

// RequestUploadSlot issues a presigned write URL constrained to the
// supplied content type and length.
func (g *Gateway) RequestUploadSlot(ctx context.Context, fileName, contentType string, size int64) (*UploadSlot, error) {
	key := g.NewObjectKey(fileName)

	req, err := g.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(g.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}, s3.WithPresignExpires(g.uploadTTL))
	if err != nil {
		return nil, errors.Wrap(err, "presign upload")
	}

	return &UploadSlot{
		PresignedURL: req.URL,
		Key:          key,
		URL:          g.PublicURL(key),
	}, nil
}

// RequestRetrievalURL issues a presigned read URL. Absent keys are not
// detected here; the storage backend rejects the request on fetch.
func (g *Gateway) RequestRetrievalURL(ctx context.Context, key string) (string, error) {
	req, err := g.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(g.readTTL))
	if err != nil {
		return "", errors.Wrap(err, "presign retrieval")
	}
	return req.URL, nil
}

// DeleteObject removes one object. S3 DeleteObject succeeds for absent
// keys, so the call is idempotent and safe to retry.
func (g *Gateway) DeleteObject(ctx context.Context, key string) error {
	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrapf(err, "delete object %s", key)
	}
	return nil
}
