// README: Object storage for avatar images (S3 in deployments, memory in development and tests).
package avatar

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type ObjectStore interface {
	// Put stores body under key and returns the URL clients load it from.
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

type S3Store struct {
	client *s3.Client
	bucket string
	region string
}

func NewS3Store(client *s3.Client, bucket, region string) *S3Store {
	return &S3Store{client: client, bucket: bucket, region: region}
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=86400"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, (&url.URL{Path: key}).EscapedPath()), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

type object struct {
	contentType string
	body        []byte
}

type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

// NewMemoryStore keeps objects in process; URLs are baseURL + key.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]object), baseURL: baseURL}
}

func (m *MemoryStore) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[key] = object{contentType: contentType, body: append([]byte(nil), body...)}
	m.mu.Unlock()
	return m.baseURL + key, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Object returns a stored object; used to serve in-memory avatars.
func (m *MemoryStore) Object(key string) (contentType string, body []byte, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	if !ok {
		return "", nil, false
	}
	return o.contentType, o.body, true
}
