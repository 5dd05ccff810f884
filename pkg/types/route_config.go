package types

const (
	ProxyPath         = "/{proxy+}"
	ProxyPathPart     = "{proxy+}"
	ProxyMethod       = "ANY"
	AuthorizationNone = "NONE"
)

// RouteConfig DTO armazena as configurações de uma rota da API.
type RouteConfig struct {
	Path          string
	Method        string
	Authorization string
}

// ProxyRoutes devolve as rotas gulosas que encaminham tudo para a função.
// Com proxyRoot a raiz do stage também é roteada, já que {proxy+} não casa com "/".
func ProxyRoutes(proxyRoot bool) []RouteConfig {
	routes := []RouteConfig{
		{Path: ProxyPath, Method: ProxyMethod, Authorization: AuthorizationNone},
	}
	if proxyRoot {
		routes = append(routes, RouteConfig{Path: "/", Method: ProxyMethod, Authorization: AuthorizationNone})
	}
	return routes
}

// RouteKey monta a chave de rota usada pelas HTTP APIs (ex.: "ANY /{proxy+}").
func (r RouteConfig) RouteKey() string {
	return r.Method + " " + r.Path
}
