package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/s3put/internal/config"
)

type fakeS3 struct {
	putErr   error
	metadata middleware.Metadata

	lastBucket      string
	lastKey         string
	lastContentType string
	lastLength      int64
	lastBody        []byte
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.lastBucket = aws.ToString(in.Bucket)
	f.lastKey = aws.ToString(in.Key)
	f.lastContentType = aws.ToString(in.ContentType)
	f.lastLength = aws.ToInt64(in.ContentLength)
	if in.Body != nil {
		b, _ := io.ReadAll(in.Body)
		f.lastBody = b
	}
	return &s3.PutObjectOutput{
		ETag:           aws.String(`"5eb63bbbe01eeed093cb22bb8f5acdc3"`),
		ResultMetadata: f.metadata,
	}, nil
}

// rawResponseMetadata runs the SDK's raw response middleware over a canned
// response and returns the metadata it records.
func rawResponseMetadata(t *testing.T, status int) middleware.Metadata {
	t.Helper()

	stack := middleware.NewStack("PutObject", smithyhttp.NewStackRequest)
	require.NoError(t, awsmiddleware.AddRawResponseToMetadata(stack))

	send := middleware.HandlerFunc(func(ctx context.Context, in interface{}) (interface{}, middleware.Metadata, error) {
		return &smithyhttp.Response{Response: &http.Response{StatusCode: status}}, middleware.Metadata{}, nil
	})

	_, md, err := middleware.DecorateHandler(send, stack).Handle(context.Background(), struct{}{})
	require.NoError(t, err)
	return md
}

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New("api error AccessDenied: Access Denied"),
		},
	}
}

func putRequest(body string) *PutRequest {
	return &PutRequest{
		Bucket:        "test-bucket",
		Key:           "hello.txt",
		Body:          bytes.NewReader([]byte(body)),
		ContentLength: int64(len(body)),
		ContentType:   "text/plain",
	}
}

func TestS3PutterPut(t *testing.T) {
	fake := &fakeS3{}
	p := &S3Putter{client: fake}

	result, err := p.Put(context.Background(), putRequest("hello world"))
	require.NoError(t, err)

	assert.True(t, result.OK())
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "test-bucket", fake.lastBucket)
	assert.Equal(t, "hello.txt", fake.lastKey)
	assert.Equal(t, "text/plain", fake.lastContentType)
	assert.Equal(t, int64(11), fake.lastLength)
	assert.Equal(t, "hello world", string(fake.lastBody))
	assert.Contains(t, result.String(), "200 OK")
}

func TestS3PutterPutForbidden(t *testing.T) {
	p := &S3Putter{client: &fakeS3{putErr: responseError(http.StatusForbidden)}}

	_, err := p.Put(context.Background(), putRequest("hello world"))
	require.Error(t, err)

	var objErr *ObjectError
	require.ErrorAs(t, err, &objErr)
	assert.Equal(t, http.StatusForbidden, objErr.StatusCode)
	assert.Equal(t, "put", objErr.Op)
	assert.Equal(t, "test-bucket", objErr.Bucket)
	assert.Equal(t, "hello.txt", objErr.Key)
	assert.Contains(t, err.Error(), "status 403")
}

func TestS3PutterPutNetworkError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	p := &S3Putter{client: &fakeS3{putErr: cause}}

	_, err := p.Put(context.Background(), putRequest("x"))
	require.Error(t, err)

	var objErr *ObjectError
	require.ErrorAs(t, err, &objErr)
	assert.Zero(t, objErr.StatusCode)
	assert.ErrorIs(t, err, cause)
}

func TestS3PutterStatusFromRawResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		ok     bool
	}{
		{name: "created", status: http.StatusCreated, ok: true},
		{name: "moved", status: http.StatusMovedPermanently},
		{name: "forbidden", status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &S3Putter{client: &fakeS3{metadata: rawResponseMetadata(t, tt.status)}}

			result, err := p.Put(context.Background(), putRequest("hello world"))
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.status, result.StatusCode)
				return
			}

			require.ErrorIs(t, err, ErrUnexpectedStatus)
			var objErr *ObjectError
			require.ErrorAs(t, err, &objErr)
			assert.Equal(t, tt.status, objErr.StatusCode)
		})
	}
}

func TestS3PutterAgainstEndpoint(t *testing.T) {
	var gotMethod, gotPath, gotType, gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotMethod, gotPath, gotType, gotBody = r.Method, r.URL.Path, r.Header.Get("Content-Type"), string(b)
		w.Header().Set("ETag", `"5eb63bbbe01eeed093cb22bb8f5acdc3"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := &config.Config{Region: config.DefaultRegion, Endpoint: ts.URL, PathStyle: true}
	p, err := NewS3Putter(context.Background(), cfg, Credentials{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret"})
	require.NoError(t, err)

	result, err := p.Put(context.Background(), putRequest("hello world"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, `"5eb63bbbe01eeed093cb22bb8f5acdc3"`, result.ETag)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/test-bucket/hello.txt", gotPath)
	assert.Equal(t, "text/plain", gotType)
	assert.Equal(t, "hello world", gotBody)
}
