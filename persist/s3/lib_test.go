package s3_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/jrhy/crmap"
	s3Persist "github.com/jrhy/crmap/persist/s3"
	"github.com/jrhy/crmap/persist/s3test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestHappyCase(t *testing.T) {
	t.Parallel()
	c, bucketName := s3test.Client(t)

	p := s3Persist.NewPersist(c, bucketName, "")
	err := p.Store(ctx, "foofoo", []byte("here is some stuff"))
	require.NoError(t, err)
	b, err := p.Load(ctx, "foofoo")
	require.NoError(t, err)
	assert.Equal(t, []byte("here is some stuff"), b)

	err = p.Store(ctx, "foofoo", []byte("replaced"))
	require.NoError(t, err)
	b, err = p.Load(ctx, "foofoo")
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced"), b)
}

type countingClient struct {
	s3Persist.S3Interface
	puts int
}

func (c *countingClient) PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	c.puts++
	return c.S3Interface.PutObjectWithContext(ctx, input, opts...)
}

func TestUnchangedContentIsNotReuploaded(t *testing.T) {
	t.Parallel()
	c, bucketName := s3test.Client(t)

	counting := &countingClient{S3Interface: c}
	p := s3Persist.NewPersist(counting, bucketName, "docs/")
	require.NoError(t, p.Store(ctx, "a", []byte("same")))
	require.NoError(t, p.Store(ctx, "a", []byte("same")))
	assert.Equal(t, 1, counting.puts)
	require.NoError(t, p.Store(ctx, "a", []byte("different")))
	assert.Equal(t, 2, counting.puts)
}

func TestSnapshotsAndUpdates(t *testing.T) {
	t.Parallel()
	c, bucketName := s3test.Client(t)

	cfg := &crmap.SnapshotConfig{
		StoreWith: s3Persist.NewPersist(c, bucketName, "crmap/"),
		Cache:     crmap.NewUpdateCache(16),
	}
	a := crmap.New(&crmap.Options{Replica: 1})
	require.NoError(t, a.Set("name", crmap.String("Alice")))
	require.NoError(t, crmap.SaveSnapshot(ctx, cfg, "a", a))

	b, err := crmap.LoadSnapshot(ctx, cfg, "a")
	require.NoError(t, err)
	b = b.Clone(2)
	require.NoError(t, b.Set("age", crmap.Int(31)))

	name, err := crmap.StoreUpdate(ctx, cfg, b.Diff(a.StateVector()))
	require.NoError(t, err)
	u, err := crmap.LoadUpdate(ctx, &crmap.SnapshotConfig{StoreWith: cfg.StoreWith}, name)
	require.NoError(t, err)
	res, err := a.Integrate(u)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	got, ok := a.Get("age")
	require.True(t, ok)
	assert.Equal(t, crmap.Int(31), got)
}
