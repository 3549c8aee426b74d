package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ObjectPathPrefix префикс, под которым backend раздаёт загруженные объекты.
// Контракт с клиентом: путь объекта собирается из последних двух сегментов
// URL хранилища.
const ObjectPathPrefix = "/objects"

// Разрешённые типы загрузок. Определяют каталог в бакете.
const (
	FileTypeProposal = "proposal"
	FileTypeContract = "contract"
)

// UploadTarget описывает предподписанный запрос прямой загрузки в хранилище.
type UploadTarget struct {
	Method string `json:"method"`
	URL    string `json:"upload_url"`
}

// Options параметры подключения к S3-совместимому хранилищу.
type Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PresignTTL      time.Duration
}

// ObjectStorage выдаёт предподписанные URL для прямой загрузки
// и отдаёт сохранённые объекты.
type ObjectStorage struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	presignTTL time.Duration
}

// NewObjectStorage создаёт клиент объектного хранилища.
// Для локальной разработки поддерживается кастомный endpoint (minio и т.п.).
func NewObjectStorage(ctx context.Context, opts Options) (*ObjectStorage, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: не задан бакет")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось загрузить конфигурацию AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := opts.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &ObjectStorage{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     opts.Bucket,
		presignTTL: ttl,
	}, nil
}

// PresignUpload выдаёт предподписанный PUT для нового объекта.
// Ключ всегда uploads/<uuid>, чтобы последние два сегмента URL
// однозначно восстанавливались в путь /objects/uploads/<uuid>.
func (s *ObjectStorage) PresignUpload(ctx context.Context, fileType string) (*UploadTarget, error) {
	if fileType != FileTypeProposal && fileType != FileTypeContract {
		return nil, fmt.Errorf("storage: неизвестный тип загрузки %q", fileType)
	}

	key := "uploads/" + uuid.NewString()

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось подписать URL загрузки: %w", err)
	}

	return &UploadTarget{Method: "PUT", URL: req.URL}, nil
}

// Get возвращает поток объекта и его content type по ключу вида uploads/<name>.
func (s *ObjectStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("storage: не удалось получить объект %s: %w", key, err)
	}

	contentType := "application/octet-stream"
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return out.Body, contentType, nil
}

// NormalizeObjectPath приводит URL хранилища к серверному пути объекта:
// берёт последние два сегмента пути и подставляет их под /objects/.
func NormalizeObjectPath(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("storage: некорректный URL объекта: %w", err)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 2 {
		return "", fmt.Errorf("storage: в URL объекта меньше двух сегментов: %s", rawURL)
	}

	tail := segments[len(segments)-2:]
	return ObjectPathPrefix + "/" + tail[0] + "/" + tail[1], nil
}
