// File: internal/service/handler.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/libpass-cli/api/schemas"
	"github.com/xkilldash9x/libpass-cli/internal/profile"
)

// StrategyResolver is the slice of the orchestrator the handler needs.
type StrategyResolver interface {
	LoadProfile(ctx context.Context) *profile.LibraryProfile
	Open(ctx context.Context, req schemas.OpenRequest) (*schemas.OpenResult, error)
}

// Handler dispatches tagged protocol messages to the automation back end.
// It mirrors the request/response shape the detector front end speaks:
// strategy lookups answer synchronously, open requests are acked as soon as
// the tab is away.
type Handler struct {
	resolver StrategyResolver
	logger   *zap.Logger
}

func NewHandler(resolver StrategyResolver, logger *zap.Logger) *Handler {
	return &Handler{resolver: resolver, logger: logger.Named("handler")}
}

// Handle processes one message and produces its response.
func (h *Handler) Handle(ctx context.Context, msg schemas.Message) (schemas.Message, error) {
	switch msg.Type {
	case schemas.MsgGetStrategy, schemas.MsgPaywallDetected:
		return h.strategyResponse(ctx, msg), nil

	case schemas.MsgOpenViaLibrary:
		res, err := h.resolver.Open(ctx, schemas.OpenRequest{
			Domain: msg.Domain,
			URL:    msg.URL,
			Title:  msg.Title,
		})
		if err != nil {
			return schemas.Message{Type: schemas.MsgOpenAck}, err
		}
		return schemas.Message{
			Type:    schemas.MsgOpenAck,
			URL:     res.TargetURL,
			Success: true,
			Session: res.SessionID,
		}, nil

	default:
		return schemas.Message{}, fmt.Errorf("unsupported message type %q", msg.Type)
	}
}

// strategyResponse answers a strategy lookup. A site without a strategy gets
// a response with a nil strategy rather than an error, matching the lookup
// contract: "unknown site" is an answer, not a failure.
func (h *Handler) strategyResponse(ctx context.Context, msg schemas.Message) schemas.Message {
	p := h.resolver.LoadProfile(ctx)
	strat := p.Resolve(msg.Domain)
	if strat == nil {
		h.logger.Debug("No strategy for domain.", zap.String("domain", msg.Domain))
	}
	return schemas.Message{
		Type:     schemas.MsgStrategyResponse,
		Domain:   msg.Domain,
		Strategy: strat,
	}
}
