package secretstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	"github.com/layer-3/rotor/internal/cache"
)

type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSStore reads secrets from AWS Secrets Manager
type AWSStore struct {
	config    *cache.Once[aws.Config]
	newClient func(aws.Config) secretsManagerAPI
	logger    *zap.Logger
}

// NewAWSStore creates a store using the default AWS credential chain
func NewAWSStore(ctx context.Context, logger *zap.Logger) *AWSStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	loadCtx := context.WithoutCancel(ctx)

	return &AWSStore{
		config: cache.NewOnce(func() (aws.Config, error) {
			logger.Info("loading aws configuration")
			return awsconfig.LoadDefaultConfig(loadCtx)
		}),
		newClient: func(cfg aws.Config) secretsManagerAPI {
			return secretsmanager.NewFromConfig(cfg)
		},
		logger: logger,
	}
}

// Preload loads the AWS configuration
func (s *AWSStore) Preload() error {
	if _, err := s.config.Get(); err != nil {
		return fmt.Errorf("failed to load aws configuration: %w", err)
	}
	return nil
}

// GetSecret returns the string value of secretID
func (s *AWSStore) GetSecret(ctx context.Context, secretID string) (string, error) {
	cfg, err := s.config.Get()
	if err != nil {
		return "", fmt.Errorf("failed to load aws configuration: %w", err)
	}

	out, err := s.newClient(cfg).GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", secretID, err)
	}

	value := aws.ToString(out.SecretString)
	if value == "" {
		return "", errors.New("secret " + secretID + " is blank")
	}
	return value, nil
}
