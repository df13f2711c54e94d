package assistant

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/aquaguard/backend/internal/analysis/intent"
	"github.com/zhouzirui/aquaguard/backend/internal/metrics"
)

// Service turns user text into the assistant's canned reply. The chain only
// holds lambda nodes, so replies stay deterministic.
type Service struct {
	matcher *intent.Matcher
	chain   compose.Runnable[string, *schema.Message]
	logger  *zap.Logger
}

// NewService compiles the reply chain around the matcher.
func NewService(ctx context.Context, matcher *intent.Matcher, logger *zap.Logger) (*Service, error) {
	if matcher == nil {
		return nil, fmt.Errorf("matcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	svc := &Service{matcher: matcher, logger: logger}

	chain := compose.NewChain[string, *schema.Message]()
	chain.AppendLambda(compose.InvokableLambda(svc.match))
	chain.AppendLambda(compose.InvokableLambda(svc.render))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reply chain: %w", err)
	}
	svc.chain = runnable
	return svc, nil
}

// Reply runs the chain and returns the assistant message.
func (s *Service) Reply(ctx context.Context, text string) (*schema.Message, error) {
	msg, err := s.chain.Invoke(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to run reply chain: %w", err)
	}
	return msg, nil
}

// Respond implements chat.Responder.
func (s *Service) Respond(ctx context.Context, text string) (string, error) {
	msg, err := s.Reply(ctx, text)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (s *Service) match(_ context.Context, text string) (intent.Resolution, error) {
	return s.matcher.Match(text), nil
}

func (s *Service) render(_ context.Context, res intent.Resolution) (*schema.Message, error) {
	metrics.RecordResolution(string(res.Outcome))
	s.logger.Debug("reply resolved",
		zap.String("outcome", string(res.Outcome)),
		zap.String("entry", res.Entry.ID),
		zap.Int("hits", res.Hits),
	)
	return schema.AssistantMessage(res.Response, nil), nil
}
