package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "finflow/config"
	"finflow/logger"
)

// Mirror uploads finished dataset files to an S3 bucket. The local file
// stays the source of truth; callers treat upload failures as warnings.
type Mirror struct {
	cfg      appconfig.S3Config
	s3Client *s3.Client
	log      *logger.Log
}

// NewMirror initializes an S3 mirror from the storage configuration.
func NewMirror(cfg appconfig.S3Config) (*Mirror, error) {
	log := logger.GetLogger()
	ctx := context.Background()

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	log.WithComponent("s3_mirror").WithFields(logger.Fields{
		"bucket": cfg.Bucket,
		"prefix": cfg.Prefix,
		"region": cfg.Region,
	}).Info("s3 mirror initialized")

	return &Mirror{cfg: cfg, s3Client: s3Client, log: log}, nil
}

// Upload stores the payload of a finished local file under the configured
// bucket and prefix.
func (m *Mirror) Upload(ctx context.Context, localPath string, data []byte) error {
	key := path.Join(m.cfg.Prefix, filepath.Base(localPath))

	if _, err := m.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	logger.IncrementS3Mirror(int64(len(data)))
	m.log.WithComponent("s3_mirror").WithFields(logger.Fields{
		"s3_key": key,
		"bytes":  len(data),
	}).Info("file mirrored")
	return nil
}
