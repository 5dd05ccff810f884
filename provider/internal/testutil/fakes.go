// Package testutil contém fakes em memória dos clientes AWS usados pelos testes
// de repository, service e resource.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	apigw "github.com/aws/aws-sdk-go-v2/service/apigateway"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	apigwv2 "github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	iam "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	lambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	s3 "github.com/aws/aws-sdk-go-v2/service/s3"
	sts "github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/raywall/terraform-provider-lambdaproxy/provider/internal/client"
)

const (
	AccountID = "123456789012"
	Region    = "us-east-1"
)

// APIError devolve um erro com o mesmo formato dos erros de serviço do SDK.
func APIError(code, msg string) error {
	return &smithy.GenericAPIError{Code: code, Message: msg}
}

// NewClient monta um AWSClient com todos os serviços falsos.
func NewClient() (*client.AWSClient, *Fakes) {
	f := &Fakes{
		IAM:     NewFakeIAM(),
		Lambda:  NewFakeLambda(),
		CWLogs:  NewFakeCWLogs(),
		APIGW:   NewFakeAPIGW(),
		APIGWv2: NewFakeAPIGWv2(),
		STS:     &FakeSTS{Account: AccountID, Arn: "arn:aws:iam::" + AccountID + ":user/tester"},
		S3:      NewFakeS3(),
	}
	c := &client.AWSClient{
		Config:    aws.Config{Region: Region},
		IAM:       f.IAM,
		Lambda:    f.Lambda,
		CWLogs:    f.CWLogs,
		APIGW:     f.APIGW,
		APIGWv2:   f.APIGWv2,
		STS:       f.STS,
		S3:        f.S3,
		Region:    Region,
		AccountID: AccountID,
		Partition: "aws",
	}
	return c, f
}

// Fakes agrupa os serviços falsos para inspeção nos testes.
type Fakes struct {
	IAM     *FakeIAM
	Lambda  *FakeLambda
	CWLogs  *FakeCWLogs
	APIGW   *FakeAPIGW
	APIGWv2 *FakeAPIGWv2
	STS     *FakeSTS
	S3      *FakeS3
}

// --- IAM ---

type FakeIAM struct {
	mu       sync.Mutex
	Roles    map[string]*iamtypes.Role
	Trust    map[string]string
	Attached map[string]map[string]bool
}

func NewFakeIAM() *FakeIAM {
	return &FakeIAM{
		Roles:    map[string]*iamtypes.Role{},
		Trust:    map[string]string{},
		Attached: map[string]map[string]bool{},
	}
}

func (f *FakeIAM) GetRole(_ context.Context, in *iam.GetRoleInput, _ ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.Roles[aws.ToString(in.RoleName)]
	if !ok {
		return nil, APIError("NoSuchEntity", "role not found")
	}
	return &iam.GetRoleOutput{Role: role}, nil
}

func (f *FakeIAM) CreateRole(_ context.Context, in *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.RoleName)
	if _, ok := f.Roles[name]; ok {
		return nil, APIError("EntityAlreadyExists", "role exists")
	}
	role := &iamtypes.Role{
		RoleName: aws.String(name),
		Arn:      aws.String(fmt.Sprintf("arn:aws:iam::%s:role/%s", AccountID, name)),
	}
	f.Roles[name] = role
	f.Trust[name] = aws.ToString(in.AssumeRolePolicyDocument)
	f.Attached[name] = map[string]bool{}
	return &iam.CreateRoleOutput{Role: role}, nil
}

func (f *FakeIAM) AttachRolePolicy(_ context.Context, in *iam.AttachRolePolicyInput, _ ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attached, ok := f.Attached[aws.ToString(in.RoleName)]
	if !ok {
		return nil, APIError("NoSuchEntity", "role not found")
	}
	attached[aws.ToString(in.PolicyArn)] = true
	return &iam.AttachRolePolicyOutput{}, nil
}

func (f *FakeIAM) DetachRolePolicy(_ context.Context, in *iam.DetachRolePolicyInput, _ ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attached := f.Attached[aws.ToString(in.RoleName)]
	if !attached[aws.ToString(in.PolicyArn)] {
		return nil, APIError("NoSuchEntity", "policy not attached")
	}
	delete(attached, aws.ToString(in.PolicyArn))
	return &iam.DetachRolePolicyOutput{}, nil
}

func (f *FakeIAM) DeleteRole(_ context.Context, in *iam.DeleteRoleInput, _ ...func(*iam.Options)) (*iam.DeleteRoleOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.RoleName)
	if _, ok := f.Roles[name]; !ok {
		return nil, APIError("NoSuchEntity", "role not found")
	}
	if len(f.Attached[name]) > 0 {
		return nil, APIError("DeleteConflict", "role has attached policies")
	}
	delete(f.Roles, name)
	delete(f.Attached, name)
	return &iam.DeleteRoleOutput{}, nil
}

// --- Lambda ---

type FakeLambda struct {
	mu          sync.Mutex
	Functions   map[string]*lambdatypes.FunctionConfiguration
	Code        map[string][]byte
	Permissions map[string]map[string]string // função -> statement -> source arn
	// CreateErrs são devolvidos, em ordem, antes de um CreateFunction ter sucesso.
	CreateErrs  []error
	CreateCalls int
	UpdateCalls int
	CodeUpdates int
}

func NewFakeLambda() *FakeLambda {
	return &FakeLambda{
		Functions:   map[string]*lambdatypes.FunctionConfiguration{},
		Code:        map[string][]byte{},
		Permissions: map[string]map[string]string{},
	}
}

func (f *FakeLambda) GetFunction(_ context.Context, in *lambda.GetFunctionInput, _ ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn, ok := f.Functions[aws.ToString(in.FunctionName)]
	if !ok {
		return nil, APIError("ResourceNotFoundException", "function not found")
	}
	cp := *fn
	return &lambda.GetFunctionOutput{Configuration: &cp}, nil
}

func (f *FakeLambda) GetFunctionConfiguration(_ context.Context, in *lambda.GetFunctionConfigurationInput, _ ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn, ok := f.Functions[aws.ToString(in.FunctionName)]
	if !ok {
		return nil, APIError("ResourceNotFoundException", "function not found")
	}
	return &lambda.GetFunctionConfigurationOutput{
		FunctionName:     fn.FunctionName,
		FunctionArn:      fn.FunctionArn,
		Handler:          fn.Handler,
		Runtime:          fn.Runtime,
		Role:             fn.Role,
		CodeSha256:       fn.CodeSha256,
		State:            fn.State,
		LastUpdateStatus: fn.LastUpdateStatus,
	}, nil
}

func (f *FakeLambda) CreateFunction(_ context.Context, in *lambda.CreateFunctionInput, _ ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if len(f.CreateErrs) > 0 {
		err := f.CreateErrs[0]
		f.CreateErrs = f.CreateErrs[1:]
		return nil, err
	}
	name := aws.ToString(in.FunctionName)
	if _, ok := f.Functions[name]; ok {
		return nil, APIError("ResourceConflictException", "function already exist")
	}
	fn := &lambdatypes.FunctionConfiguration{
		FunctionName:     aws.String(name),
		FunctionArn:      aws.String(fmt.Sprintf("arn:aws:lambda:%s:%s:function:%s", Region, AccountID, name)),
		Handler:          in.Handler,
		Runtime:          in.Runtime,
		Role:             in.Role,
		MemorySize:       in.MemorySize,
		Timeout:          in.Timeout,
		State:            lambdatypes.StateActive,
		LastUpdateStatus: lambdatypes.LastUpdateStatusSuccessful,
	}
	if in.Code != nil {
		f.Code[name] = in.Code.ZipFile
	}
	f.Functions[name] = fn
	return &lambda.CreateFunctionOutput{FunctionArn: fn.FunctionArn, FunctionName: fn.FunctionName, State: fn.State}, nil
}

func (f *FakeLambda) UpdateFunctionConfiguration(_ context.Context, in *lambda.UpdateFunctionConfigurationInput, _ ...func(*lambda.Options)) (*lambda.UpdateFunctionConfigurationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn, ok := f.Functions[aws.ToString(in.FunctionName)]
	if !ok {
		return nil, APIError("ResourceNotFoundException", "function not found")
	}
	f.UpdateCalls++
	fn.Handler = in.Handler
	fn.Runtime = in.Runtime
	fn.Role = in.Role
	fn.MemorySize = in.MemorySize
	fn.Timeout = in.Timeout
	return &lambda.UpdateFunctionConfigurationOutput{FunctionArn: fn.FunctionArn}, nil
}

func (f *FakeLambda) UpdateFunctionCode(_ context.Context, in *lambda.UpdateFunctionCodeInput, _ ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.FunctionName)
	fn, ok := f.Functions[name]
	if !ok {
		return nil, APIError("ResourceNotFoundException", "function not found")
	}
	f.CodeUpdates++
	f.Code[name] = in.ZipFile
	return &lambda.UpdateFunctionCodeOutput{FunctionArn: fn.FunctionArn}, nil
}

func (f *FakeLambda) AddPermission(_ context.Context, in *lambda.AddPermissionInput, _ ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.FunctionName)
	if _, ok := f.Functions[name]; !ok {
		return nil, APIError("ResourceNotFoundException", "function not found")
	}
	if f.Permissions[name] == nil {
		f.Permissions[name] = map[string]string{}
	}
	sid := aws.ToString(in.StatementId)
	if _, ok := f.Permissions[name][sid]; ok {
		return nil, APIError("ResourceConflictException", "statement id already exists")
	}
	f.Permissions[name][sid] = aws.ToString(in.SourceArn)
	return &lambda.AddPermissionOutput{}, nil
}

func (f *FakeLambda) RemovePermission(_ context.Context, in *lambda.RemovePermissionInput, _ ...func(*lambda.Options)) (*lambda.RemovePermissionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.FunctionName)
	sid := aws.ToString(in.StatementId)
	if _, ok := f.Permissions[name][sid]; !ok {
		return nil, APIError("ResourceNotFoundException", "statement not found")
	}
	delete(f.Permissions[name], sid)
	return &lambda.RemovePermissionOutput{}, nil
}

func (f *FakeLambda) DeleteFunction(_ context.Context, in *lambda.DeleteFunctionInput, _ ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.FunctionName)
	if _, ok := f.Functions[name]; !ok {
		return nil, APIError("ResourceNotFoundException", "function not found")
	}
	delete(f.Functions, name)
	delete(f.Code, name)
	delete(f.Permissions, name)
	return &lambda.DeleteFunctionOutput{}, nil
}

// --- CloudWatch Logs ---

type FakeCWLogs struct {
	mu     sync.Mutex
	Groups map[string]int32
	// RetentionErrs são devolvidos, em ordem, antes de um PutRetentionPolicy ter sucesso.
	RetentionErrs []error
}

func NewFakeCWLogs() *FakeCWLogs {
	return &FakeCWLogs{Groups: map[string]int32{}}
}

func (f *FakeCWLogs) CreateLogGroup(_ context.Context, in *cw.CreateLogGroupInput, _ ...func(*cw.Options)) (*cw.CreateLogGroupOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.LogGroupName)
	if _, ok := f.Groups[name]; ok {
		return nil, APIError("ResourceAlreadyExistsException", "log group exists")
	}
	f.Groups[name] = 0
	return &cw.CreateLogGroupOutput{}, nil
}

func (f *FakeCWLogs) PutRetentionPolicy(_ context.Context, in *cw.PutRetentionPolicyInput, _ ...func(*cw.Options)) (*cw.PutRetentionPolicyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.RetentionErrs) > 0 {
		err := f.RetentionErrs[0]
		f.RetentionErrs = f.RetentionErrs[1:]
		return nil, err
	}
	name := aws.ToString(in.LogGroupName)
	if _, ok := f.Groups[name]; !ok {
		return nil, APIError("ResourceNotFoundException", "log group not found")
	}
	f.Groups[name] = aws.ToInt32(in.RetentionInDays)
	return &cw.PutRetentionPolicyOutput{}, nil
}

func (f *FakeCWLogs) DeleteLogGroup(_ context.Context, in *cw.DeleteLogGroupInput, _ ...func(*cw.Options)) (*cw.DeleteLogGroupOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.LogGroupName)
	if _, ok := f.Groups[name]; !ok {
		return nil, APIError("ResourceNotFoundException", "log group not found")
	}
	delete(f.Groups, name)
	return &cw.DeleteLogGroupOutput{}, nil
}

// --- API Gateway (REST) ---

type RestMethod struct {
	Authorization  string
	IntegrationURI string
	Integration    apigwtypes.IntegrationType
}

type RestAPI struct {
	Name        string
	RootID      string
	Resources   map[string]apigwtypes.Resource
	Methods     map[string]*RestMethod // resourceID + " " + método
	Deployments []string
	Stages      map[string]string // stage -> deploymentID
}

type FakeAPIGW struct {
	mu   sync.Mutex
	seq  int
	APIs map[string]*RestAPI
}

func NewFakeAPIGW() *FakeAPIGW {
	return &FakeAPIGW{APIs: map[string]*RestAPI{}}
}

func (f *FakeAPIGW) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%04d", prefix, f.seq)
}

func (f *FakeAPIGW) api(id *string) (*RestAPI, error) {
	api, ok := f.APIs[aws.ToString(id)]
	if !ok {
		return nil, APIError("NotFoundException", "Invalid API identifier specified")
	}
	return api, nil
}

func (f *FakeAPIGW) CreateRestApi(_ context.Context, in *apigw.CreateRestApiInput, _ ...func(*apigw.Options)) (*apigw.CreateRestApiOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("api")
	rootID := f.nextID("root")
	f.APIs[id] = &RestAPI{
		Name:   aws.ToString(in.Name),
		RootID: rootID,
		Resources: map[string]apigwtypes.Resource{
			rootID: {Id: aws.String(rootID), Path: aws.String("/")},
		},
		Methods: map[string]*RestMethod{},
		Stages:  map[string]string{},
	}
	return &apigw.CreateRestApiOutput{Id: aws.String(id), Name: in.Name, RootResourceId: aws.String(rootID)}, nil
}

func (f *FakeAPIGW) GetRestApi(_ context.Context, in *apigw.GetRestApiInput, _ ...func(*apigw.Options)) (*apigw.GetRestApiOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	api, err := f.api(in.RestApiId)
	if err != nil {
		return nil, err
	}
	return &apigw.GetRestApiOutput{Id: in.RestApiId, Name: aws.String(api.Name), RootResourceId: aws.String(api.RootID)}, nil
}

func (f *FakeAPIGW) GetResources(_ context.Context, in *apigw.GetResourcesInput, _ ...func(*apigw.Options)) (*apigw.GetResourcesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	api, err := f.api(in.RestApiId)
	if err != nil {
		return nil, err
	}
	out := &apigw.GetResourcesOutput{}
	for _, res := range api.Resources {
		out.Items = append(out.Items, res)
	}
	return out, nil
}

func (f *FakeAPIGW) CreateResource(_ context.Context, in *apigw.CreateResourceInput, _ ...func(*apigw.Options)) (*apigw.CreateResourceOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	api, err := f.api(in.RestApiId)
	if err != nil {
		return nil, err
	}
	parent, ok := api.Resources[aws.ToString(in.ParentId)]
	if !ok {
		return nil, APIError("NotFoundException", "Invalid Resource identifier specified")
	}
	path := strings.TrimSuffix(aws.ToString(parent.Path), "/") + "/" + aws.ToString(in.PathPart)
	for _, res := range api.Resources {
		if aws.ToString(res.Path) == path {
			return nil, APIError("ConflictException", "Another resource with the same parent already has this name")
		}
	}
	id := f.nextID("res")
	api.Resources[id] = apigwtypes.Resource{
		Id:       aws.String(id),
		ParentId: in.ParentId,
		PathPart: in.PathPart,
		Path:     aws.String(path),
	}
	return &apigw.CreateResourceOutput{Id: aws.String(id), Path: aws.String(path), PathPart: in.PathPart}, nil
}

func (f *FakeAPIGW) PutMethod(_ context.Context, in *apigw.PutMethodInput, _ ...func(*apigw.Options)) (*apigw.PutMethodOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	api, err := f.api(in.RestApiId)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.ResourceId) + " " + aws.ToString(in.HttpMethod)
	if _, ok := api.Methods[key]; ok {
		return nil, APIError("ConflictException", "Method already exists for this resource")
	}
	api.Methods[key] = &RestMethod{Authorization: aws.ToString(in.AuthorizationType)}
	return &apigw.PutMethodOutput{HttpMethod: in.HttpMethod}, nil
}

func (f *FakeAPIGW) PutIntegration(_ context.Context, in *apigw.PutIntegrationInput, _ ...func(*apigw.Options)) (*apigw.PutIntegrationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	api, err := f.api(in.RestApiId)
	if err != nil {
		return nil, err
	}
	m, ok := api.Methods[aws.ToString(in.ResourceId)+" "+aws.ToString(in.HttpMethod)]
	if !ok {
		return nil, APIError("NotFoundException", "Invalid Method identifier specified")
	}
	m.IntegrationURI = aws.ToString(in.Uri)
	m.Integration = in.Type
	return &apigw.PutIntegrationOutput{Type: in.Type, Uri: in.Uri}, nil
}

func (f *FakeAPIGW) CreateDeployment(_ context.Context, in *apigw.CreateDeploymentInput, _ ...func(*apigw.Options)) (*apigw.CreateDeploymentOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	api, err := f.api(in.RestApiId)
	if err != nil {
		return nil, err
	}
	if len(api.Methods) == 0 {
		return nil, APIError("BadRequestException", "The REST API doesn't contain any methods")
	}
	for key, m := range api.Methods {
		if m.IntegrationURI == "" {
			return nil, APIError("BadRequestException", "No integration defined for method "+key)
		}
	}
	id := f.nextID("dep")
	api.Deployments = append(api.Deployments, id)
	if stage := aws.ToString(in.StageName); stage != "" {
		api.Stages[stage] = id
	}
	return &apigw.CreateDeploymentOutput{Id: aws.String(id)}, nil
}

func (f *FakeAPIGW) GetStage(_ context.Context, in *apigw.GetStageInput, _ ...func(*apigw.Options)) (*apigw.GetStageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	api, err := f.api(in.RestApiId)
	if err != nil {
		return nil, err
	}
	dep, ok := api.Stages[aws.ToString(in.StageName)]
	if !ok {
		return nil, APIError("NotFoundException", "Invalid Stage identifier specified")
	}
	return &apigw.GetStageOutput{StageName: in.StageName, DeploymentId: aws.String(dep)}, nil
}

func (f *FakeAPIGW) CreateStage(_ context.Context, in *apigw.CreateStageInput, _ ...func(*apigw.Options)) (*apigw.CreateStageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	api, err := f.api(in.RestApiId)
	if err != nil {
		return nil, err
	}
	stage := aws.ToString(in.StageName)
	if _, ok := api.Stages[stage]; ok {
		return nil, APIError("ConflictException", "Stage already exists")
	}
	api.Stages[stage] = aws.ToString(in.DeploymentId)
	return &apigw.CreateStageOutput{StageName: in.StageName, DeploymentId: in.DeploymentId}, nil
}

func (f *FakeAPIGW) UpdateStage(_ context.Context, in *apigw.UpdateStageInput, _ ...func(*apigw.Options)) (*apigw.UpdateStageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	api, err := f.api(in.RestApiId)
	if err != nil {
		return nil, err
	}
	stage := aws.ToString(in.StageName)
	if _, ok := api.Stages[stage]; !ok {
		return nil, APIError("NotFoundException", "Invalid Stage identifier specified")
	}
	for _, op := range in.PatchOperations {
		if op.Op == apigwtypes.OpReplace && aws.ToString(op.Path) == "/deploymentId" {
			api.Stages[stage] = aws.ToString(op.Value)
		}
	}
	return &apigw.UpdateStageOutput{StageName: in.StageName, DeploymentId: aws.String(api.Stages[stage])}, nil
}

func (f *FakeAPIGW) DeleteRestApi(_ context.Context, in *apigw.DeleteRestApiInput, _ ...func(*apigw.Options)) (*apigw.DeleteRestApiOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.api(in.RestApiId); err != nil {
		return nil, err
	}
	delete(f.APIs, aws.ToString(in.RestApiId))
	return &apigw.DeleteRestApiOutput{}, nil
}

// --- API Gateway v2 (HTTP) ---

type HTTPAPI struct {
	Name         string
	Protocol     string
	Endpoint     string
	Integrations map[string]string // id -> uri
	Routes       map[string]string // routeKey -> target
	Stages       map[string]bool   // stage -> auto deploy
}

type FakeAPIGWv2 struct {
	mu   sync.Mutex
	seq  int
	APIs map[string]*HTTPAPI
}

func NewFakeAPIGWv2() *FakeAPIGWv2 {
	return &FakeAPIGWv2{APIs: map[string]*HTTPAPI{}}
}

func (f *FakeAPIGWv2) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%04d", prefix, f.seq)
}

func (f *FakeAPIGWv2) api(id *string) (*HTTPAPI, error) {
	api, ok := f.APIs[aws.ToString(id)]
	if !ok {
		return nil, APIError("NotFoundException", "Invalid API identifier specified")
	}
	return api, nil
}

func (f *FakeAPIGWv2) CreateApi(_ context.Context, in *apigwv2.CreateApiInput, _ ...func(*apigwv2.Options)) (*apigwv2.CreateApiOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("http")
	api := &HTTPAPI{
		Name:         aws.ToString(in.Name),
		Protocol:     string(in.ProtocolType),
		Endpoint:     fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com", id, Region),
		Integrations: map[string]string{},
		Routes:       map[string]string{},
		Stages:       map[string]bool{},
	}
	f.APIs[id] = api
	return &apigwv2.CreateApiOutput{ApiId: aws.String(id), ApiEndpoint: aws.String(api.Endpoint), Name: in.Name, ProtocolType: in.ProtocolType}, nil
}

func (f *FakeAPIGWv2) GetApi(_ context.Context, in *apigwv2.GetApiInput, _ ...func(*apigwv2.Options)) (*apigwv2.GetApiOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	api, err := f.api(in.ApiId)
	if err != nil {
		return nil, err
	}
	return &apigwv2.GetApiOutput{ApiId: in.ApiId, ApiEndpoint: aws.String(api.Endpoint), Name: aws.String(api.Name)}, nil
}

func (f *FakeAPIGWv2) CreateIntegration(_ context.Context, in *apigwv2.CreateIntegrationInput, _ ...func(*apigwv2.Options)) (*apigwv2.CreateIntegrationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	api, err := f.api(in.ApiId)
	if err != nil {
		return nil, err
	}
	id := f.nextID("int")
	api.Integrations[id] = aws.ToString(in.IntegrationUri)
	return &apigwv2.CreateIntegrationOutput{IntegrationId: aws.String(id), IntegrationUri: in.IntegrationUri}, nil
}

func (f *FakeAPIGWv2) CreateRoute(_ context.Context, in *apigwv2.CreateRouteInput, _ ...func(*apigwv2.Options)) (*apigwv2.CreateRouteOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	api, err := f.api(in.ApiId)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.RouteKey)
	if _, ok := api.Routes[key]; ok {
		return nil, APIError("ConflictException", "Route with key "+key+" already exists for this API")
	}
	api.Routes[key] = aws.ToString(in.Target)
	return &apigwv2.CreateRouteOutput{RouteId: aws.String(f.nextID("route")), RouteKey: in.RouteKey, Target: in.Target}, nil
}

func (f *FakeAPIGWv2) CreateStage(_ context.Context, in *apigwv2.CreateStageInput, _ ...func(*apigwv2.Options)) (*apigwv2.CreateStageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	api, err := f.api(in.ApiId)
	if err != nil {
		return nil, err
	}
	stage := aws.ToString(in.StageName)
	if _, ok := api.Stages[stage]; ok {
		return nil, APIError("ConflictException", "Stage already exists")
	}
	api.Stages[stage] = aws.ToBool(in.AutoDeploy)
	return &apigwv2.CreateStageOutput{StageName: in.StageName, AutoDeploy: in.AutoDeploy}, nil
}

func (f *FakeAPIGWv2) DeleteApi(_ context.Context, in *apigwv2.DeleteApiInput, _ ...func(*apigwv2.Options)) (*apigwv2.DeleteApiOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.api(in.ApiId); err != nil {
		return nil, err
	}
	delete(f.APIs, aws.ToString(in.ApiId))
	return &apigwv2.DeleteApiOutput{}, nil
}

// --- STS / S3 ---

type FakeSTS struct {
	Account string
	Arn     string
}

func (f *FakeSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{Account: aws.String(f.Account), Arn: aws.String(f.Arn)}, nil
}

type FakeS3 struct {
	mu      sync.Mutex
	Objects map[string][]byte // "bucket/key" -> conteúdo
	Sources []string          // CopySource recebidos, ainda codificados
}

func NewFakeS3() *FakeS3 {
	return &FakeS3{Objects: map[string][]byte{}}
}

func (f *FakeS3) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sources = append(f.Sources, aws.ToString(in.CopySource))
	src, err := url.PathUnescape(strings.TrimPrefix(aws.ToString(in.CopySource), "/"))
	if err != nil {
		return nil, APIError("InvalidArgument", "Invalid copy source encoding")
	}
	body, ok := f.Objects[src]
	if !ok {
		return nil, APIError("NoSuchKey", "The specified key does not exist.")
	}
	f.Objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	return &s3.CopyObjectOutput{}, nil
}
