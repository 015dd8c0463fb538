package router

import (
	"context"
	"fmt"

	"github.com/xpanvictor/interm/pkg/assistant"
)

// PreferredRP selects Name when registered, otherwise the first provider.
type PreferredRP struct {
	Name string
}

func (p *PreferredRP) Select(available []string) string {
	for _, n := range available {
		if n == p.Name {
			return n
		}
	}
	if len(available) == 0 {
		return ""
	}
	return available[0]
}

func New(policy RoutePolicy, providers ...assistant.Provider) *Mux {
	m := &Mux{
		RouterPolicy: policy,
		ProviderMap:  make(map[string]assistant.Provider, len(providers)),
	}
	for _, p := range providers {
		if _, dup := m.ProviderMap[p.Name()]; !dup {
			m.order = append(m.order, p.Name())
		}
		m.ProviderMap[p.Name()] = p
	}
	return m
}

func (m *Mux) Select() (assistant.Provider, error) {
	name := m.RouterPolicy.Select(m.order)
	p, ok := m.ProviderMap[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", assistant.ErrNoProvider, name)
	}
	return p, nil
}

func (m *Mux) Available() []string {
	return append([]string(nil), m.order...)
}

// Name reports the provider the policy currently routes to.
func (m *Mux) Name() string {
	p, err := m.Select()
	if err != nil {
		return "none"
	}
	return p.Name()
}

func (m *Mux) Generate(ctx context.Context, req assistant.GenerateRequest) (string, error) {
	p, err := m.Select()
	if err != nil {
		return "", err
	}
	return p.Generate(ctx, req)
}

func (m *Mux) Stream(ctx context.Context, req assistant.GenerateRequest, fn func(string) error) (string, error) {
	p, err := m.Select()
	if err != nil {
		return "", err
	}
	return p.Stream(ctx, req, fn)
}

func (m *Mux) GenerateMultimodal(ctx context.Context, req assistant.GenerateRequest, media []assistant.Media) (string, error) {
	p, err := m.Select()
	if err != nil {
		return "", err
	}
	return p.GenerateMultimodal(ctx, req, media)
}
