package advisor

import (
	"context"
	"fmt"
	"log"

	"marketpulse/internal/domain"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// AdvisorService writes the natural-language commentary attached to each
// report.
type AdvisorService struct {
	tracer trace.Tracer
	llm    LLMClient
	model  string
}

func NewAdvisorService(tracer trace.Tracer, llm LLMClient, model string) *AdvisorService {
	return &AdvisorService{tracer: tracer, llm: llm, model: model}
}

// Commentary generates the briefing for one finished report.
func (s *AdvisorService) Commentary(ctx context.Context, report *domain.AnalysisReport) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.commentary")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", s.model))

	briefing := BuildBriefingPrompt(report)
	log.Printf("requesting commentary (%d bytes of briefing data)", len(briefing))

	completion, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(briefingRole),
			openai.UserMessage(briefing),
		},
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("commentary unavailable: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	reply := completion.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

// openaiClient wraps the official SDK's chat completions service.
type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{client: client}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
