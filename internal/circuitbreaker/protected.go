package circuitbreaker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayodele-o/outreach/internal/transport"
)

// ProtectedTransport wraps a Transport with a CircuitBreaker. A rejected
// request surfaces as an ordinary transient delivery error to the engine.
type ProtectedTransport struct {
	inner   transport.Transport
	breaker *CircuitBreaker
	logger  *zap.Logger
}

func NewProtectedTransport(inner transport.Transport, breaker *CircuitBreaker, logger *zap.Logger) *ProtectedTransport {
	return &ProtectedTransport{
		inner:   inner,
		breaker: breaker,
		logger:  logger,
	}
}

func (p *ProtectedTransport) Send(ctx context.Context, req transport.Request) (transport.Result, error) {
	if !p.breaker.Allow() {
		p.logger.Warn("circuit breaker rejected send",
			zap.String("breaker", p.breaker.config.Name),
			zap.String("recipient_id", req.RecipientID),
			zap.String("state", p.breaker.GetState().String()),
		)
		return transport.Result{}, fmt.Errorf("%w: %s transport unavailable", ErrCircuitOpen, p.breaker.config.Name)
	}

	result, err := p.inner.Send(ctx, req)
	if err != nil {
		p.breaker.RecordFailure()
		return transport.Result{}, err
	}

	p.breaker.RecordSuccess()
	return result, nil
}
