package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Storage keeps uploaded files such as avatars.
type Storage interface {
	Upload(ctx context.Context, file *multipart.FileHeader, folder string) (string, error)
	Delete(ctx context.Context, fileURL string) error
}

// StorageConfig selects S3 when credentials are present, local disk otherwise.
type StorageConfig struct {
	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string
	Bucket       string
	UploadDir    string
	BaseURL      string
}

// InitStorage initializes either S3 or local storage based on configuration
func InitStorage(cfg StorageConfig, log *zap.Logger) (Storage, error) {
	if cfg.AWSRegion != "" && cfg.AWSAccessKey != "" && cfg.AWSSecretKey != "" {
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("AWS_S3_BUCKET is required when AWS credentials are set")
		}
		sess, err := session.NewSession(&aws.Config{
			Region:      aws.String(cfg.AWSRegion),
			Credentials: credentials.NewStaticCredentials(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		})
		if err != nil {
			return nil, fmt.Errorf("create AWS session: %w", err)
		}
		log.Info("Using S3 storage", zap.String("bucket", cfg.Bucket))
		return &S3Storage{
			client:   s3.New(sess),
			uploader: s3manager.NewUploader(sess),
			bucket:   cfg.Bucket,
			region:   cfg.AWSRegion,
		}, nil
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	log.Warn("AWS S3 not configured, using local file storage", zap.String("dir", cfg.UploadDir))
	return &LocalStorage{dir: cfg.UploadDir, baseURL: strings.TrimRight(cfg.BaseURL, "/")}, nil
}

func objectName(folder, filename string) string {
	return fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, src); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return buf.Bytes(), nil
}

type S3Storage struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	region   string
}

func (s *S3Storage) Upload(ctx context.Context, file *multipart.FileHeader, folder string) (string, error) {
	data, err := readUpload(file)
	if err != nil {
		return "", err
	}
	key := objectName(folder, file.Filename)
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		return "", fmt.Errorf("upload to S3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

func (s *S3Storage) Delete(ctx context.Context, fileURL string) error {
	u, err := url.Parse(fileURL)
	if err != nil {
		return fmt.Errorf("parse file URL: %w", err)
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(strings.TrimPrefix(u.Path, "/")),
	})
	return err
}

// LocalStorage writes files under dir and serves them from BaseURL/uploads.
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, baseURL string) *LocalStorage {
	return &LocalStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) Upload(_ context.Context, file *multipart.FileHeader, folder string) (string, error) {
	data, err := readUpload(file)
	if err != nil {
		return "", err
	}
	name := objectName(folder, file.Filename)
	path := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}
	return fmt.Sprintf("%s/uploads/%s", s.baseURL, name), nil
}

func (s *LocalStorage) Delete(_ context.Context, fileURL string) error {
	prefix := s.baseURL + "/uploads/"
	if !strings.HasPrefix(fileURL, prefix) {
		return nil
	}
	rel := filepath.FromSlash(strings.TrimPrefix(fileURL, prefix))
	if strings.Contains(rel, "..") {
		return fmt.Errorf("invalid file path")
	}
	err := os.Remove(filepath.Join(s.dir, rel))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
