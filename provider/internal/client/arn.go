package client

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ExecutionArn monta o ARN de execução da API (usado no SourceArn da permissão).
func (c *AWSClient) ExecutionArn(apiID string) string {
	return fmt.Sprintf("arn:%s:execute-api:%s:%s:%s", c.partition(), c.Region, c.AccountID, apiID)
}

// InvokeURI monta a URI de integração AWS_PROXY para a função.
func (c *AWSClient) InvokeURI(functionArn string) string {
	return fmt.Sprintf("arn:%s:apigateway:%s:lambda:path/2015-03-31/functions/%s/invocations", c.partition(), c.Region, functionArn)
}

// InvokeURL monta a URL pública do stage de uma REST API.
func (c *AWSClient) InvokeURL(apiID, stage string) string {
	return fmt.Sprintf("https://%s.execute-api.%s.%s/%s", apiID, c.Region, c.dnsSuffix(), stage)
}

func (c *AWSClient) partition() string {
	if c.Partition == "" {
		return "aws"
	}
	return c.Partition
}

func (c *AWSClient) dnsSuffix() string {
	if c.partition() == "aws-cn" {
		return "amazonaws.com.cn"
	}
	return "amazonaws.com"
}

// IsAPIErrorCode verifica se o erro é um smithy.APIError com algum dos códigos informados.
func IsAPIErrorCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}
