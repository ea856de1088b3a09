// Package storage guarda documentos de pacientes e comprovantes num bucket S3 (ou compatível).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// DownloadTTL é a validade das URLs assinadas de download.
const DownloadTTL = 300 * time.Second

var ErrNotConfigured = errors.New("storage: bucket not configured")

type Options struct {
	Bucket       string
	Region       string
	Endpoint     string // vazio = AWS
	UsePathStyle bool
}

type S3 struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient
}

// New carrega a config padrão da AWS (env, perfil, IMDS) e sobrepõe região/endpoint.
func New(ctx context.Context, opts Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, ErrNotConfigured
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithConfig(cfg, opts), nil
}

func NewWithConfig(cfg aws.Config, opts Options) *S3 {
	region := cfg.Region
	if opts.Region != "" {
		region = opts.Region
	}
	endpoint := cfg.BaseEndpoint
	if opts.Endpoint != "" {
		endpoint = aws.String(opts.Endpoint)
	}
	client := s3.New(s3.Options{
		Region:       region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: endpoint,
		UsePathStyle: opts.UsePathStyle,
	})
	return &S3{bucket: opts.Bucket, client: client, presign: s3.NewPresignClient(client)}
}

func (s *S3) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPrivate,
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	_, err := s.client.PutObject(ctx, in)
	return err
}

// PresignGet gera uma URL temporária de download; ttl <= 0 usa DownloadTTL.
// fileName, se informado, vira o Content-Disposition da resposta.
func (s *S3) PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DownloadTTL
	}
	in := &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}
	if fileName != "" {
		in.ResponseContentDisposition = aws.String(fmt.Sprintf(`attachment; filename="%s"`, SafeName(fileName)))
	}
	req, err := s.presign.PresignGetObject(ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// PresignPut gera uma URL para o cliente enviar o arquivo direto ao bucket.
func (s *S3) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DownloadTTL
	}
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	return err
}

// DocumentKey: patients/{patientID}/{uuid}-{nome}.
func DocumentKey(patientID uuid.UUID, fileName string) string {
	return path.Join("patients", patientID.String(), uuid.NewString()+"-"+SafeName(fileName))
}

// ReceiptKey: receipts/{billingID}/{uuid}-{nome}.
func ReceiptKey(billingID uuid.UUID, fileName string) string {
	return path.Join("receipts", billingID.String(), uuid.NewString()+"-"+SafeName(fileName))
}

// SafeName remove diretórios e caracteres que quebram chaves ou headers.
func SafeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '"' || r == '/' || r < 0x20 || r == 0x7f:
			continue
		case r == ' ':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		return "arquivo"
	}
	return out
}
