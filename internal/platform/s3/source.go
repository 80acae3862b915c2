package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/phrazzld/classifier-worker/internal/classify"
	"github.com/phrazzld/classifier-worker/internal/config"
)

// DefaultMaxBytes caps the size of an image object when none is configured.
const DefaultMaxBytes = 20 << 20

// Common errors
var (
	ErrNilClient     = errors.New("s3 client cannot be nil")
	ErrNotFound      = errors.New("image not found")
	ErrTooLarge      = errors.New("image exceeds maximum size")
	ErrUndecodable   = errors.New("image could not be decoded")
	ErrEmptyLocation = errors.New("bucket and key are required")
)

// ImageSource fetches images from S3.
type ImageSource struct {
	client   s3iface.S3API
	maxBytes int64
	logger   *slog.Logger
}

var _ classify.ImageSource = (*ImageSource)(nil)

// NewClient creates an S3 client for the configured region. A non-empty
// endpoint switches to path-style addressing against that endpoint.
func NewClient(cfg config.ImagesConfig) (*awss3.S3, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return awss3.New(sess), nil
}

// NewImageSource creates an ImageSource. A maxBytes of zero applies
// DefaultMaxBytes.
func NewImageSource(client s3iface.S3API, maxBytes int64, logger *slog.Logger) (*ImageSource, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageSource{
		client:   client,
		maxBytes: maxBytes,
		logger:   logger.With("component", "s3_image_source"),
	}, nil
}

// Resolve implements classify.ImageSource.
func (s *ImageSource) Resolve(ctx context.Context, bucket, key string) (image.Image, error) {
	if bucket == "" || key == "" {
		return nil, ErrEmptyLocation
	}

	out, err := s.client.GetObjectWithContext(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == awss3.ErrCodeNoSuchKey || aerr.Code() == awss3.ErrCodeNoSuchBucket) {
			return nil, fmt.Errorf("s3://%s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	if size := aws.Int64Value(out.ContentLength); size > s.maxBytes {
		return nil, fmt.Errorf("s3://%s/%s is %d bytes: %w", bucket, key, size, ErrTooLarge)
	}

	data, err := io.ReadAll(io.LimitReader(out.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", bucket, key, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("s3://%s/%s: %w", bucket, key, ErrTooLarge)
	}

	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", bucket, key, err)
	}

	s.logger.DebugContext(ctx, "resolved image",
		"bucket", bucket,
		"key", key,
		"bytes", len(data),
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())
	return img, nil
}

// Decode decodes an encoded image, applies its EXIF orientation and
// converts it to NRGBA.
func Decode(data []byte) (*image.NRGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return imaging.Clone(img), nil
}
