package client

import (
	"context"

	apigw "github.com/aws/aws-sdk-go-v2/service/apigateway"
	apigwv2 "github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	iam "github.com/aws/aws-sdk-go-v2/service/iam"
	lambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	s3 "github.com/aws/aws-sdk-go-v2/service/s3"
	sts "github.com/aws/aws-sdk-go-v2/service/sts"
)

// Interfaces mínimas de cada serviço; os *Client do SDK as satisfazem e os testes usam fakes.

type IAMAPI interface {
	GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	AttachRolePolicy(ctx context.Context, params *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
	DetachRolePolicy(ctx context.Context, params *iam.DetachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error)
	DeleteRole(ctx context.Context, params *iam.DeleteRoleInput, optFns ...func(*iam.Options)) (*iam.DeleteRoleOutput, error)
}

type LambdaAPI interface {
	GetFunction(ctx context.Context, params *lambda.GetFunctionInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error)
	GetFunctionConfiguration(ctx context.Context, params *lambda.GetFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error)
	CreateFunction(ctx context.Context, params *lambda.CreateFunctionInput, optFns ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error)
	UpdateFunctionConfiguration(ctx context.Context, params *lambda.UpdateFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionConfigurationOutput, error)
	UpdateFunctionCode(ctx context.Context, params *lambda.UpdateFunctionCodeInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error)
	AddPermission(ctx context.Context, params *lambda.AddPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error)
	RemovePermission(ctx context.Context, params *lambda.RemovePermissionInput, optFns ...func(*lambda.Options)) (*lambda.RemovePermissionOutput, error)
	DeleteFunction(ctx context.Context, params *lambda.DeleteFunctionInput, optFns ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error)
}

type CWLogsAPI interface {
	CreateLogGroup(ctx context.Context, params *cw.CreateLogGroupInput, optFns ...func(*cw.Options)) (*cw.CreateLogGroupOutput, error)
	PutRetentionPolicy(ctx context.Context, params *cw.PutRetentionPolicyInput, optFns ...func(*cw.Options)) (*cw.PutRetentionPolicyOutput, error)
	DeleteLogGroup(ctx context.Context, params *cw.DeleteLogGroupInput, optFns ...func(*cw.Options)) (*cw.DeleteLogGroupOutput, error)
}

type APIGWAPI interface {
	CreateRestApi(ctx context.Context, params *apigw.CreateRestApiInput, optFns ...func(*apigw.Options)) (*apigw.CreateRestApiOutput, error)
	GetRestApi(ctx context.Context, params *apigw.GetRestApiInput, optFns ...func(*apigw.Options)) (*apigw.GetRestApiOutput, error)
	GetResources(ctx context.Context, params *apigw.GetResourcesInput, optFns ...func(*apigw.Options)) (*apigw.GetResourcesOutput, error)
	CreateResource(ctx context.Context, params *apigw.CreateResourceInput, optFns ...func(*apigw.Options)) (*apigw.CreateResourceOutput, error)
	PutMethod(ctx context.Context, params *apigw.PutMethodInput, optFns ...func(*apigw.Options)) (*apigw.PutMethodOutput, error)
	PutIntegration(ctx context.Context, params *apigw.PutIntegrationInput, optFns ...func(*apigw.Options)) (*apigw.PutIntegrationOutput, error)
	CreateDeployment(ctx context.Context, params *apigw.CreateDeploymentInput, optFns ...func(*apigw.Options)) (*apigw.CreateDeploymentOutput, error)
	GetStage(ctx context.Context, params *apigw.GetStageInput, optFns ...func(*apigw.Options)) (*apigw.GetStageOutput, error)
	CreateStage(ctx context.Context, params *apigw.CreateStageInput, optFns ...func(*apigw.Options)) (*apigw.CreateStageOutput, error)
	UpdateStage(ctx context.Context, params *apigw.UpdateStageInput, optFns ...func(*apigw.Options)) (*apigw.UpdateStageOutput, error)
	DeleteRestApi(ctx context.Context, params *apigw.DeleteRestApiInput, optFns ...func(*apigw.Options)) (*apigw.DeleteRestApiOutput, error)
}

type APIGWv2API interface {
	CreateApi(ctx context.Context, params *apigwv2.CreateApiInput, optFns ...func(*apigwv2.Options)) (*apigwv2.CreateApiOutput, error)
	GetApi(ctx context.Context, params *apigwv2.GetApiInput, optFns ...func(*apigwv2.Options)) (*apigwv2.GetApiOutput, error)
	CreateIntegration(ctx context.Context, params *apigwv2.CreateIntegrationInput, optFns ...func(*apigwv2.Options)) (*apigwv2.CreateIntegrationOutput, error)
	CreateRoute(ctx context.Context, params *apigwv2.CreateRouteInput, optFns ...func(*apigwv2.Options)) (*apigwv2.CreateRouteOutput, error)
	CreateStage(ctx context.Context, params *apigwv2.CreateStageInput, optFns ...func(*apigwv2.Options)) (*apigwv2.CreateStageOutput, error)
	DeleteApi(ctx context.Context, params *apigwv2.DeleteApiInput, optFns ...func(*apigwv2.Options)) (*apigwv2.DeleteApiOutput, error)
}

type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type S3API interface {
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}
