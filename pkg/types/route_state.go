package types

// RouteState DTO armazena o estado de uma rota após o provisionamento.
type RouteState struct {
	Path          string `json:"path"`
	Method        string `json:"method"`
	Authorization string `json:"authorization"`
	ResourceID    string `json:"resource_id,omitempty"` // ID do recurso REST
	RouteID       string `json:"route_id,omitempty"`    // ID da rota HTTP API
}
