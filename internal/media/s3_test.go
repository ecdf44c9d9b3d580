package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/Inventory/internal/config"
)

type fakeObjects struct {
	puts   map[string]string
	types  map[string]string
	putErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{puts: map[string]string{}, types: map[string]string{}}
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.puts[key] = string(body)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Save(t *testing.T) {
	fake := newFakeObjects()
	store := NewS3StoreWithClient(fake, "bucket", "images/", "https://cdn.example.com/")

	loc, err := store.Save(context.Background(), "cat-1-abcdef12.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/images/cat-1-abcdef12.png", loc)
	assert.Equal(t, "png", fake.puts["bucket/images/cat-1-abcdef12.png"])
	assert.Equal(t, "image/png", fake.types["bucket/images/cat-1-abcdef12.png"])
}

func TestS3Store_PutError(t *testing.T) {
	fake := newFakeObjects()
	fake.putErr = errors.New("access denied")
	store := NewS3StoreWithClient(fake, "bucket", "", "https://bucket.s3.us-east-1.amazonaws.com")

	_, err := store.Save(context.Background(), "a.png", "image/png", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestObjectBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		want    string
		wantErr bool
	}{
		{
			name: "aws default",
			cfg:  config.StorageConfig{S3Bucket: "imgs", S3Region: "eu-west-1"},
			want: "https://imgs.s3.eu-west-1.amazonaws.com",
		},
		{
			name: "public override",
			cfg:  config.StorageConfig{S3Bucket: "imgs", S3PublicURL: "https://cdn.example.com"},
			want: "https://cdn.example.com",
		},
		{
			name: "path style endpoint",
			cfg:  config.StorageConfig{S3Bucket: "imgs", S3Endpoint: "http://localhost:9000/", S3UsePathStyle: true},
			want: "http://localhost:9000/imgs",
		},
		{
			name: "virtual hosted endpoint",
			cfg:  config.StorageConfig{S3Bucket: "imgs", S3Endpoint: "https://storage.example.com"},
			want: "https://imgs.storage.example.com",
		},
		{
			name:    "endpoint without host",
			cfg:     config.StorageConfig{S3Bucket: "imgs", S3Endpoint: "localhost"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := objectBaseURL(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), config.StorageConfig{S3Region: "us-east-1"})
	assert.Error(t, err)
}

func TestNewS3Store_StaticCredentials(t *testing.T) {
	store, err := NewS3Store(context.Background(), config.StorageConfig{
		S3Bucket:          "imgs",
		S3Region:          "us-east-1",
		S3Endpoint:        "http://localhost:9000",
		S3AccessKeyID:     "minio",
		S3SecretAccessKey: "minio123",
		S3Prefix:          "images/",
		S3UsePathStyle:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/imgs", store.baseURL)
	assert.Equal(t, "images/x.png", store.key("x.png"))
}
