package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"cake.png", true},
		{"cake.JPG", true},
		{"cake.jpeg", true},
		{"anim.gif", true},
		{"cake.webp", false},
		{"script.png.exe", false},
		{"noext", false},
		{".png", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AllowedFile(tt.name), tt.name)
	}
}

func TestSecureFilename(t *testing.T) {
	assert.Equal(t, "passwd", SecureFilename("../../etc/passwd"))
	assert.Equal(t, "my_cake.png", SecureFilename("my cake.png"))
	assert.Equal(t, "cake.png", SecureFilename(`C:\photos\cake.png`))
	assert.Equal(t, "tarte.png", SecureFilename("tarte<>.png"))
}

func TestObjectName(t *testing.T) {
	now := time.Unix(1700000000, 0)
	name, err := objectName(7, "my cake.PNG", now)
	require.NoError(t, err)
	assert.Equal(t, "7_1700000000_my_cake.PNG", name)

	name, err = objectName(7, "gâteau.png", now)
	require.NoError(t, err)
	assert.Equal(t, "7_1700000000_gteau.png", name)

	_, err = objectName(7, "evil.svg", now)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/static/uploads/")
	require.NoError(t, err)
	store.now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()

	ref, err := store.Save(ctx, 3, "pie.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/static/uploads/3_1700000000_pie.jpg", ref)

	data, err := os.ReadFile(filepath.Join(dir, "3_1700000000_pie.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	_, err = store.Save(ctx, 3, "pie.txt", "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	require.NoError(t, store.Delete(ctx, ref))
	_, err = os.Stat(filepath.Join(dir, "3_1700000000_pie.jpg"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice or foreign references is a no-op
	assert.NoError(t, store.Delete(ctx, ref))
	assert.NoError(t, store.Delete(ctx, "https://example.com/x.png"))
	assert.NoError(t, store.Delete(ctx, "/static/uploads/../secret"))
}

func TestLocalStoreSameSecondUploads(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/static/uploads")
	require.NoError(t, err)
	store.now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()

	first, err := store.Save(ctx, 3, "pie.jpg", "image/jpeg", strings.NewReader("one"))
	require.NoError(t, err)
	second, err := store.Save(ctx, 3, "pie.jpg", "image/jpeg", strings.NewReader("two"))
	require.NoError(t, err)
	third, err := store.Save(ctx, 3, "pie.jpg", "image/jpeg", strings.NewReader("three"))
	require.NoError(t, err)

	assert.Equal(t, "/static/uploads/3_1700000000_pie.jpg", first)
	assert.Equal(t, "/static/uploads/3_1700000000_pie-1.jpg", second)
	assert.Equal(t, "/static/uploads/3_1700000000_pie-2.jpg", third)

	data, err := os.ReadFile(filepath.Join(dir, "3_1700000000_pie.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "3_1700000000_pie-1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

type fakeS3 struct {
	puts    map[string]string
	deletes []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts[aws.ToString(in.Key)] = string(body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	client := &fakeS3{puts: map[string]string{}}
	store := NewS3Store(client, S3Options{Bucket: "recipes", Region: "eu-central-1"})
	store.now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()

	ref, err := store.Save(ctx, 5, "soup.gif", "image/gif", strings.NewReader("gif"))
	require.NoError(t, err)
	assert.Equal(t, "https://recipes.s3.eu-central-1.amazonaws.com/recipes/5_1700000000_soup.gif", ref)
	assert.Equal(t, "gif", client.puts["recipes/5_1700000000_soup.gif"])

	require.NoError(t, store.Delete(ctx, ref))
	require.NoError(t, store.Delete(ctx, "/static/uploads/local.png"))
	assert.Equal(t, []string{"recipes/5_1700000000_soup.gif"}, client.deletes)
}
