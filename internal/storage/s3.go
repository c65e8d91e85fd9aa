package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/tomasbasham/s3put/internal/config"
)

// s3API is the subset of the S3 client used here; tests substitute a fake.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Putter uploads objects to Amazon S3 or an S3-compatible endpoint.
type S3Putter struct {
	client s3API
}

// NewS3Putter creates an S3Putter for the configured region using the given
// static credentials. The SDK's retryer is limited to a single attempt: an
// upload is one PUT and retrying is the caller's decision.
func NewS3Putter(ctx context.Context, cfg *config.Config, creds Credentials) (*S3Putter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds.Provider()),
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return &S3Putter{client: client}, nil
}

// Put issues a single PutObject request. A response error from the service
// is returned as an *ObjectError carrying the HTTP status.
func (p *S3Putter) Put(ctx context.Context, req *PutRequest) (*PutResult, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(req.Bucket),
		Key:    aws.String(req.Key),
		Body:   req.Body,
	}
	if req.ContentType != "" {
		in.ContentType = aws.String(req.ContentType)
	}
	if req.ContentLength >= 0 {
		in.ContentLength = aws.Int64(req.ContentLength)
	}

	out, err := p.client.PutObject(ctx, in)
	if err != nil {
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			return nil, newObjectError("put", req, respErr.HTTPStatusCode(), err)
		}
		return nil, newObjectError("put", req, 0, err)
	}

	result := &PutResult{
		Bucket:     req.Bucket,
		Key:        req.Key,
		StatusCode: statusCode(out.ResultMetadata),
		ETag:       aws.ToString(out.ETag),
	}
	if !result.OK() {
		return nil, newObjectError("put", req, result.StatusCode, ErrUnexpectedStatus)
	}
	return result, nil
}

// statusCode extracts the HTTP status from the raw response recorded in the
// operation metadata. A missing raw response means the SDK accepted the
// result, so it is reported as 200.
func statusCode(md middleware.Metadata) int {
	if resp, ok := awsmiddleware.GetRawResponse(md).(*smithyhttp.Response); ok && resp.Response != nil {
		return resp.StatusCode
	}
	return http.StatusOK
}
