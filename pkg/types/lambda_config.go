package types

// LambdaConfig DTO armazena todas as configurações da função Lambda e da sua Role.
type LambdaConfig struct {
	FunctionName   string
	Runtime        string
	Handler        string
	ZipPath        string
	SourceCodeHash string
	MemorySize     int32
	Timeout        int32
	RoleName       string
	PolicyARNs     []string          // policy_arns
	Environment    map[string]string // environment
	LogRetention   int32
}
