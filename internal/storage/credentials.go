package storage

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/tomasbasham/s3put/internal/config"
)

const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvSessionToken    = "AWS_SESSION_TOKEN"
)

// Credentials is an access key pair read from the configuration source at
// the moment an upload runs. It is never cached.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// CredentialsFromEnv reads the access key pair through lookup. Both the key
// id and the secret are required.
func CredentialsFromEnv(lookup config.LookupFunc) (Credentials, error) {
	id, ok := lookup(EnvAccessKeyID)
	if !ok || id == "" {
		return Credentials{}, fmt.Errorf("storage: %w: %s must be set", ErrMissingCredentials, EnvAccessKeyID)
	}
	secret, ok := lookup(EnvSecretAccessKey)
	if !ok || secret == "" {
		return Credentials{}, fmt.Errorf("storage: %w: %s must be set", ErrMissingCredentials, EnvSecretAccessKey)
	}
	token, _ := lookup(EnvSessionToken)

	return Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    token,
	}, nil
}

// Provider adapts the pair to the SDK's credential interface.
func (c Credentials) Provider() aws.CredentialsProvider {
	return credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
}
