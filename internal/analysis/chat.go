package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrSchemaViolation marks model output that did not parse into the expected
// structure. The extractor retries these; everything else surfaces them.
var ErrSchemaViolation = errors.New("model output failed schema validation")

// ChatClient is the one capability every analysis stage needs from the LLM
// provider. *clients.OpenAIClient satisfies it; tests inject fakes.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// chatJSON runs a single JSON-mode completion and unmarshals the reply into
// out. Transport errors come back as-is; parse failures wrap
// ErrSchemaViolation so callers can tell the two apart.
func chatJSON(ctx context.Context, client ChatClient, temperature float32, prompt string, out any) error {
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       openai.GPT4o,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return fmt.Errorf("[Analysis] completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("[Analysis] completion returned no choices: %w", ErrSchemaViolation)
	}

	cleaned := cleanModelResponse(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("[Analysis] failed to parse model output (%v): %w", err, ErrSchemaViolation)
	}
	return nil
}

// cleanModelResponse strips markdown code fences some models wrap around
// JSON replies despite the response-format setting.
func cleanModelResponse(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
