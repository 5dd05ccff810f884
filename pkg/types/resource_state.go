package types

// ResourceState é a estrutura principal que armazena todo o estado interno
// do recurso 'lambdaproxy_function_api'.
type ResourceState struct {
	RoleName           string                  `json:"role_name"`
	RoleArn            string                  `json:"role_arn"`
	FunctionName       string                  `json:"function_name"`
	FunctionArn        string                  `json:"function_arn"`
	InvokeArn          string                  `json:"invoke_arn"`
	APIGatewayID       string                  `json:"api_gateway_id"`
	Protocol           string                  `json:"protocol"`
	StageName          string                  `json:"stage_name"`
	DeploymentID       string                  `json:"deployment_id,omitempty"`
	IntegrationID      string                  `json:"integration_id,omitempty"`
	ExecutionArn       string                  `json:"execution_arn"`
	InvokeURL          string                  `json:"invoke_url"`
	PermissionID       string                  `json:"permission_id"`
	Routes             []RouteState            `json:"routes"`
	LogGroup           string                  `json:"log_group"`
	Resources          map[string]ResourceInfo `json:"resources,omitempty"`
	AttachedPolicyARNs []string                `json:"attached_policy_arns"`
	SourceCodeHash     string                  `json:"source_code_hash"`
}
