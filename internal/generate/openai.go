package generate

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"sintesi/internal/errors"
	"sintesi/internal/logging"
)

const defaultModel = "gpt-4o-mini"

const systemPrompt = `You are a technical writer keeping API documentation in sync with code.
Rewrite the given documentation fragment so it accurately describes the current code signature.
Preserve the tone and formatting of the surrounding document.
Return only the markdown body, without code-fence wrappers around the whole answer and without HTML comment markers.`

// OpenAIGenerator rewrites anchor bodies with a chat completion model.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *logging.Logger
}

// NewOpenAIGenerator creates a generator for the given API key and
// model. An empty model falls back to the default.
func NewOpenAIGenerator(apiKey, model string, logger *logging.Logger) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.Newf(errors.ConfigError, "generation requires an API key")
	}
	if model == "" {
		model = defaultModel
	}
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	prompt := buildPrompt(req)

	g.logger.Debug("requesting documentation rewrite", map[string]interface{}{
		"model":   g.model,
		"codeRef": req.CodeRef.String(),
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", errors.New(errors.GenerationError, "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Newf(errors.GenerationError, "model returned no choices")
	}

	body := strings.TrimSpace(resp.Choices[0].Message.Content)
	if body == "" {
		return "", errors.Newf(errors.GenerationError, "model returned an empty body")
	}
	return body, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n", req.CodeRef.String())
	if req.Signature != nil {
		fmt.Fprintf(&b, "Current signature (%s):\n%s\n", req.Signature.SymbolType, req.Signature.SignatureText)
	}
	if req.PreviousSignatureText != "" {
		fmt.Fprintf(&b, "\nPrevious signature the documentation described:\n%s\n", req.PreviousSignatureText)
	}
	if req.PreviousContent != "" {
		fmt.Fprintf(&b, "\nExisting documentation to update:\n%s\n", req.PreviousContent)
	}
	if req.SurroundingDoc != "" {
		fmt.Fprintf(&b, "\nSurrounding document for context:\n%s\n", req.SurroundingDoc)
	}
	return b.String()
}
