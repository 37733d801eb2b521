package http

import "context"

// StaticAuthProvider sends the same bearer token to every relayer endpoint
type StaticAuthProvider struct {
	apiKey string
}

// NewStaticAuthProvider creates a provider for a relayer API key
func NewStaticAuthProvider(apiKey string) *StaticAuthProvider {
	return &StaticAuthProvider{apiKey: apiKey}
}

// GetAuthHeaders implements AuthProvider
func (p *StaticAuthProvider) GetAuthHeaders(ctx context.Context) (AuthHeaders, error) {
	header := map[string]string{"Authorization": "Bearer " + p.apiKey}
	return AuthHeaders{Verify: header, Settle: header}, nil
}

// FuncAuthProvider adapts a function to AuthProvider
type FuncAuthProvider struct {
	fn func(context.Context) (AuthHeaders, error)
}

// NewFuncAuthProvider creates a provider that calls fn for every request
func NewFuncAuthProvider(fn func(context.Context) (AuthHeaders, error)) *FuncAuthProvider {
	return &FuncAuthProvider{fn: fn}
}

// GetAuthHeaders implements AuthProvider
func (p *FuncAuthProvider) GetAuthHeaders(ctx context.Context) (AuthHeaders, error) {
	return p.fn(ctx)
}
