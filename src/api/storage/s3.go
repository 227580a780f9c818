package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/Gunhee-b/community-web-sub001/src/api/config"
)

// Uploader writes image blobs to the object store and hands back public URLs.
// No signed-URL expiry is used; uploaded objects are world-readable.
type Uploader struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

func New(ctx context.Context, cfg config.Config) (*Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := cfg.S3PublicBase
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	}

	return &Uploader{client: client, bucket: cfg.S3Bucket, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

// ChatImageKey builds the object key for a chat attachment: namespaced by
// meeting ID with a randomized filename that keeps the original extension.
func ChatImageKey(meetingID uint64, filename string) string {
	return fmt.Sprintf("meeting-chats/%d/%s%s", meetingID, uuid.NewString(), strings.ToLower(path.Ext(filename)))
}

// AnswerImageKey builds the object key for a daily-question answer image.
func AnswerImageKey(questionID uint64, filename string) string {
	return fmt.Sprintf("question-answers/%d/%s%s", questionID, uuid.NewString(), strings.ToLower(path.Ext(filename)))
}

func (u *Uploader) Upload(ctx context.Context, key, contentType string, blob []byte) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(blob),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return u.PublicURL(key), nil
}

func (u *Uploader) PublicURL(key string) string {
	return u.publicBase + "/" + key
}
