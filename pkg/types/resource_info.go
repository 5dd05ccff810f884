package types

// ResourceInfo é um DTO de baixo nível usado para rastrear os recursos REST criados.
type ResourceInfo struct {
	ResourceID string `json:"resource_id"`
	ParentID   string `json:"parent_id"`
	PathPart   string `json:"path_part"`
}
