package jars

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/alan791205/ohara/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// BucketStore keeps jars in an S3 compatible bucket under an optional prefix.
type BucketStore struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewBucketStore(ctx context.Context, cfg config.BucketJarStoreConfig) (*BucketStore, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("jar store: missing bucket name")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("jar store: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.URL != "" {
			// minio and other self hosted endpoints
			o.BaseEndpoint = aws.String(cfg.URL)
			o.UsePathStyle = true
		}
	})
	return &BucketStore{client: client, bucket: cfg.BucketName, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (s *BucketStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func bucketNotFound(name string, err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %q", ErrJarNotFound, name)
	}
	return err
}

func (s *BucketStore) Put(ctx context.Context, name string, r io.Reader) (Jar, error) {
	// a seekable body lets the sdk sign the payload over plain http endpoints
	data, err := io.ReadAll(r)
	if err != nil {
		return Jar{}, err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/java-archive"),
	})
	if err != nil {
		return Jar{}, fmt.Errorf("put %q: %w", name, err)
	}
	return s.Stat(ctx, name)
}

func (s *BucketStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, bucketNotFound(name, err)
	}
	return out.Body, nil
}

func (s *BucketStore) Stat(ctx context.Context, name string) (Jar, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return Jar{}, bucketNotFound(name, err)
	}
	jar := Jar{ID: name, Name: name, Size: aws.ToInt64(out.ContentLength)}
	if out.LastModified != nil {
		jar.LastModified = out.LastModified.UTC()
	}
	return jar, nil
}

func (s *BucketStore) List(ctx context.Context) ([]Jar, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}
	jars := []Jar{}
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list jars: %w", err)
		}
		for _, obj := range page.Contents {
			name := path.Base(aws.ToString(obj.Key))
			jar := Jar{ID: name, Name: name, Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				jar.LastModified = obj.LastModified.UTC()
			}
			jars = append(jars, jar)
		}
	}
	return jars, nil
}

// Rename copies the object to its new key and removes the old one.
func (s *BucketStore) Rename(ctx context.Context, from, to string) (Jar, error) {
	if _, err := s.Stat(ctx, from); err != nil {
		return Jar{}, err
	}
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(copySource(s.bucket, s.key(from))),
		Key:        aws.String(s.key(to)),
	})
	if err != nil {
		return Jar{}, fmt.Errorf("copy %q to %q: %w", from, to, err)
	}
	if err := s.Delete(ctx, from); err != nil {
		return Jar{}, err
	}
	return s.Stat(ctx, to)
}

func copySource(bucket, key string) string {
	parts := strings.Split(bucket+"/"+key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (s *BucketStore) Delete(ctx context.Context, name string) error {
	if _, err := s.Stat(ctx, name); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	return nil
}
