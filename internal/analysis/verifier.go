package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spacesedan/marketbrief/internal/models"
)

const VERIFY_TEMPERATURE = 0.0

// Verifier cross-checks a written packet against its source articles. The
// result is advisory: the pipeline records issues but ships the packet unless
// configured to block.
type Verifier struct {
	client ChatClient
}

func NewVerifier(client ChatClient) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, packet models.AnalystPacket, primary models.Article, related []models.Article) (models.Verification, error) {
	sources := make([]string, 0, len(related)+1)
	sources = append(sources, sourceText(primary))
	for _, r := range related {
		sources = append(sources, sourceText(r))
	}

	packetJSON, err := json.Marshal(packet)
	if err != nil {
		return models.Verification{}, fmt.Errorf("[Verifier] packet marshal failed: %w", err)
	}

	var verification models.Verification
	prompt := buildVerifyPrompt(strings.Join(sources, "\n---\n"), packetJSON)
	if err := chatJSON(ctx, v.client, VERIFY_TEMPERATURE, prompt, &verification); err != nil {
		return models.Verification{}, fmt.Errorf("[Verifier] check failed: %w", err)
	}

	if verification.Issues == nil {
		verification.Issues = []string{}
	}
	return verification, nil
}

func sourceText(a models.Article) string {
	if text := strings.TrimSpace(a.RawText); text != "" {
		return fmt.Sprintf("%s\n%s", strings.TrimSpace(a.Title), text)
	}
	return a.CombinedText()
}
