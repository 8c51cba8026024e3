// internal/clients/storage/s3.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"pika-api/internal/common/config"
	stderrors "pika-api/internal/common/errors"
	"pika-api/internal/common/logger"
)

// ErrAuthentication marks credential rejections so callers can distinguish
// them from transient storage failures.
var ErrAuthentication = errors.New("storage authentication rejected")

// Client talks to an S3-compatible object store. The access key id is fixed
// in configuration; the secret arrives with each request and is only held in
// memory for the duration of the call.
type Client struct {
	cfg    config.StorageConfig
	logger logger.Logger
}

func NewClient(cfg config.StorageConfig, log logger.Logger) *Client {
	return &Client{cfg: cfg, logger: log}
}

func (c *Client) s3Client(storageKey string) *s3.Client {
	awsCfg := aws.Config{
		Region: c.cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			c.cfg.AccessKeyID, storageKey, ""),
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
}

// Download fetches a blob by path using the per-request credential.
func (c *Client) Download(ctx context.Context, storageKey, blobPath string) ([]byte, error) {
	client := c.s3Client(storageKey)

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(blobPath),
	})
	if err != nil {
		return nil, c.classify("download", blobPath, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", blobPath, err)
	}

	c.logger.Debug("Blob downloaded", map[string]interface{}{
		"blobPath": blobPath,
		"bytes":    len(data),
	})
	return data, nil
}

// Relocate moves a blob to a new path via copy-then-delete. When the delete
// fails after a successful copy the object exists at both paths; callers get
// the error and can surface it as a warning.
func (c *Client) Relocate(ctx context.Context, storageKey, fromPath, toPath string) error {
	client := c.s3Client(storageKey)

	_, err := client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(c.cfg.Bucket),
		CopySource: aws.String(c.cfg.Bucket + "/" + fromPath),
		Key:        aws.String(toPath),
	})
	if err != nil {
		return c.classify("copy", fromPath, err)
	}

	// Confirm the copy landed before deleting the original.
	_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(toPath),
	})
	if err != nil {
		return c.classify("verify", toPath, err)
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(fromPath),
	})
	if err != nil {
		return c.classify("delete", fromPath, err)
	}

	c.logger.Info("Blob relocated", map[string]interface{}{
		"from": fromPath,
		"to":   toPath,
	})
	return nil
}

// classify wraps upstream errors, tagging credential rejections with
// ErrAuthentication. The storage key never appears in log fields or error
// text.
func (c *Client) classify(op, blobPath string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccessDenied":
			c.logger.Warn("Storage credential rejected", map[string]interface{}{
				"operation": op,
				"blobPath":  blobPath,
				"errorCode": apiErr.ErrorCode(),
			})
			return fmt.Errorf("%s %s: %w", op, blobPath, ErrAuthentication)
		}
	}

	// Some S3-compatible stores reply with untyped errors whose code only
	// shows up in the message.
	if stderrors.IsAuthFailure(err.Error()) {
		c.logger.Warn("Storage credential rejected", map[string]interface{}{
			"operation": op,
			"blobPath":  blobPath,
		})
		return fmt.Errorf("%s %s: %w", op, blobPath, ErrAuthentication)
	}
	return fmt.Errorf("storage %s failed for %s: %w", op, blobPath, err)
}
