package router

import "github.com/xpanvictor/interm/pkg/assistant"

type Mux struct {
	RouterPolicy RoutePolicy
	ProviderMap  map[string]assistant.Provider
	order        []string
}

// RoutePolicy picks a provider name from those registered, in
// registration order.
type RoutePolicy interface {
	Select(available []string) string
}
