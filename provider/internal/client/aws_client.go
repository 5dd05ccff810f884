package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	apigw "github.com/aws/aws-sdk-go-v2/service/apigateway"
	apigwv2 "github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	iam "github.com/aws/aws-sdk-go-v2/service/iam"
	lambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	s3 "github.com/aws/aws-sdk-go-v2/service/s3"
	sts "github.com/aws/aws-sdk-go-v2/service/sts"
)

// AWSClient contém clientes e informações de configuração AWS.
type AWSClient struct {
	Config    aws.Config
	IAM       IAMAPI
	Lambda    LambdaAPI
	CWLogs    CWLogsAPI
	APIGW     APIGWAPI   // REST API (v1)
	APIGWv2   APIGWv2API // HTTP API (v2)
	STS       STSAPI
	S3        S3API // Backup/rollback do statefile
	Region    string
	AccountID string
	Partition string
	S3Bucket  string
	StateKey  string
}

// Options são os parâmetros do bloco provider usados para montar o cliente.
type Options struct {
	Region    string
	Profile   string
	AccessKey string
	SecretKey string
}

// Validate exige access_key e secret_key juntos.
func (o Options) Validate() error {
	if (o.AccessKey == "") != (o.SecretKey == "") {
		return fmt.Errorf("both access_key and secret_key must be provided if one is set")
	}
	return nil
}

// New cria um novo AWSClient para a região fornecida.
func New(ctx context.Context, opts Options) (*AWSClient, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var loadOpts []func(*config.LoadOptions) error
	if strings.TrimSpace(opts.Region) != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if strings.TrimSpace(opts.Profile) != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := &AWSClient{
		Config:  cfg,
		IAM:     iam.NewFromConfig(cfg),
		Lambda:  lambda.NewFromConfig(cfg),
		CWLogs:  cw.NewFromConfig(cfg),
		APIGW:   apigw.NewFromConfig(cfg),
		APIGWv2: apigwv2.NewFromConfig(cfg),
		STS:     sts.NewFromConfig(cfg),
		S3:      s3.NewFromConfig(cfg),
		Region:  cfg.Region,
	}

	// Pré-carrega AccountID e partição
	if err := client.LoadIdentity(ctx); err != nil {
		return nil, err
	}

	return client, nil
}

// LoadIdentity preenche AccountID e Partition a partir do GetCallerIdentity.
func (c *AWSClient) LoadIdentity(ctx context.Context) error {
	result, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("getting account ID: %w", err)
	}
	c.AccountID = aws.ToString(result.Account)
	c.Partition = "aws"

	if parsed, perr := arn.Parse(aws.ToString(result.Arn)); perr == nil && parsed.Partition != "" {
		c.Partition = parsed.Partition
	}
	return nil
}
