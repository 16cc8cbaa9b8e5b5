package aws_s3

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/data-engineering-collective/minimalkv"
)

// cannedClient answers every request with the same S3 error response, which
// lets the error mapping be exercised without a live endpoint.
type cannedClient struct {
	status int
	body   string
}

func (c *cannedClient) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: c.status,
		Header:     http.Header{"Content-Type": []string{"application/xml"}},
		Body:       io.NopCloser(strings.NewReader(c.body)),
		Request:    req,
	}, nil
}

func newErrorStore(t *testing.T, status int, code string) *Store {
	t.Helper()
	client := s3.New(s3.Options{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("access", "secret", ""),
		HTTPClient: &cannedClient{
			status: status,
			body: `<?xml version="1.0" encoding="UTF-8"?><Error><Code>` + code +
				`</Code><Message>canned response</Message></Error>`,
		},
		RetryMaxAttempts: 1,
	})
	store, err := New(context.Background(), client, "bucket", "us-east-1", false)
	require.NoError(t, err)
	return store
}

func TestNewRequiresClientAndBucket(t *testing.T) {
	_, err := New(context.Background(), nil, "bucket", "us-east-1", false)
	require.Error(t, err)

	_, err = New(context.Background(), s3.New(s3.Options{Region: "us-east-1"}), "", "us-east-1", false)
	require.Error(t, err)
	assert.True(t, minimalkv.HasCode(err, minimalkv.ConfigParse))
}

func TestOpenMissingKeyIsKeyNotFound(t *testing.T) {
	store := newErrorStore(t, http.StatusNotFound, "NoSuchKey")

	_, err := store.Open(context.Background(), "absent")
	assert.True(t, minimalkv.IsKeyNotFound(err))
}

func TestCopyMissingSourceIsKeyNotFound(t *testing.T) {
	store := newErrorStore(t, http.StatusNotFound, "NoSuchKey")

	_, err := store.Copy(context.Background(), "absent", "dest")
	assert.True(t, minimalkv.IsKeyNotFound(err))
}

func TestCopyOtherErrorsAreBackendFailures(t *testing.T) {
	store := newErrorStore(t, http.StatusForbidden, "AccessDenied")

	_, err := store.Copy(context.Background(), "source", "dest")
	require.Error(t, err)
	assert.True(t, minimalkv.HasCode(err, minimalkv.BackendFailure))
}
