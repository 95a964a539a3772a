package provider

import (
	"context"

	"github.com/cexll/codeagent/internal/costcontrol"
	"github.com/cexll/codeagent/internal/metrics"
)

type budgeted struct {
	next    Provider
	tracker *costcontrol.Tracker
}

// Budget refuses calls to p once tracker reports a limit. Refused calls
// never reach the backend.
func Budget(p Provider, tracker *costcontrol.Tracker) Provider {
	return &budgeted{next: p, tracker: tracker}
}

func (b *budgeted) Name() string {
	return b.next.Name()
}

func (b *budgeted) Complete(ctx context.Context, req *Request) (string, error) {
	if err := b.tracker.Reserve(ctx); err != nil {
		metrics.LLMRequests.WithLabelValues(b.next.Name(), "limited").Inc()
		return "", err
	}
	return b.next.Complete(ctx, req)
}
