// Package s3test runs S3-backed tests against an in-process gofakes3
// server, or against CRMAP_TEST_S3_ENDPOINT when it is set.
package s3test

import (
	"net/http/httptest"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/require"
)

// Client returns a client and a freshly created bucket. Both are
// released when t finishes.
func Client(t testing.TB) (*s3.S3, string) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "ca-west-1"
	}
	cfg := &aws.Config{
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if endpoint := os.Getenv("CRMAP_TEST_S3_ENDPOINT"); endpoint != "" {
		// credentials come from the environment
		cfg.Endpoint = aws.String(endpoint)
	} else {
		ts := httptest.NewServer(gofakes3.New(s3mem.New()).Server())
		t.Cleanup(ts.Close)
		cfg.Endpoint = aws.String(ts.URL)
		cfg.DisableSSL = aws.Bool(true)
		cfg.Credentials = credentials.NewStaticCredentials("TEST-ACCESSKEYID", "TEST-SECRETACCESSKEY", "")
	}
	sess, err := session.NewSession(cfg)
	require.NoError(t, err)
	client := s3.New(sess)

	bucket := "crmap-test-" + uuid.NewString()
	_, err = client.CreateBucket(&s3.CreateBucketInput{Bucket: &bucket})
	require.NoError(t, err)
	t.Cleanup(func() { removeBucket(client, bucket) })
	return client, bucket
}

func removeBucket(client *s3.S3, bucket string) {
	_ = client.ListObjectsV2Pages(&s3.ListObjectsV2Input{Bucket: &bucket},
		func(page *s3.ListObjectsV2Output, last bool) bool {
			for _, o := range page.Contents {
				_, _ = client.DeleteObject(&s3.DeleteObjectInput{Bucket: &bucket, Key: o.Key})
			}
			return true
		})
	_, _ = client.DeleteBucket(&s3.DeleteBucketInput{Bucket: &bucket})
}
