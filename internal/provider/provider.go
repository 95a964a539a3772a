package provider

import (
	"context"

	"github.com/cexll/codeagent/internal/provider/shared"
)

// Request is a single-turn completion request.
type Request = shared.Request

// Provider is the interface that all LLM providers must implement
type Provider interface {
	// Complete sends one system+user exchange and returns the reply text
	Complete(ctx context.Context, req *Request) (string, error)

	// Name returns the provider name
	Name() string
}
