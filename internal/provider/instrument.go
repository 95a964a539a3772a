package provider

import (
	"context"
	"time"

	"github.com/cexll/codeagent/internal/metrics"
	"github.com/chainguard-dev/clog"
)

type instrumented struct {
	next    Provider
	timeout time.Duration
}

// Instrument bounds every call to p by timeout and records call metrics.
// A non-positive timeout leaves the caller's deadline untouched.
func Instrument(p Provider, timeout time.Duration) Provider {
	return &instrumented{next: p, timeout: timeout}
}

func (i *instrumented) Name() string {
	return i.next.Name()
}

func (i *instrumented) Complete(ctx context.Context, req *Request) (string, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	log := clog.FromContext(ctx).With("provider", i.next.Name())
	start := time.Now()
	reply, err := i.next.Complete(ctx, req)
	elapsed := time.Since(start)

	metrics.LLMLatency.WithLabelValues(i.next.Name()).Observe(elapsed.Seconds())
	if err != nil {
		metrics.LLMRequests.WithLabelValues(i.next.Name(), "error").Inc()
		log.Warnf("completion failed after %s: %v", elapsed.Round(time.Millisecond), err)
		return "", err
	}
	metrics.LLMRequests.WithLabelValues(i.next.Name(), "ok").Inc()
	log.Debugf("completion returned %d chars in %s", len(reply), elapsed.Round(time.Millisecond))
	return reply, nil
}
