package types

const (
	ProtocolREST = "REST"
	ProtocolHTTP = "HTTP"

	DefaultStageName = "dev"
)

// APIConfig DTO armazena as configurações da API que faz proxy para a Lambda.
type APIConfig struct {
	Name      string
	Protocol  string
	StageName string
	ProxyRoot bool
}

// APIGWState armazena o estado da API após o provisionamento.
type APIGWState struct {
	APIGatewayID  string
	Protocol      string
	StageName     string
	DeploymentID  string
	IntegrationID string
	ExecutionArn  string
	InvokeURL     string
	Routes        []RouteState
	Resources     map[string]ResourceInfo // Só é preenchido para REST
}
