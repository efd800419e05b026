package analysis

import (
	"context"
	"fmt"

	"github.com/spacesedan/marketbrief/internal/models"
)

const WRITE_TEMPERATURE = 0.5

// WriteRequest bundles everything the writer works from. Snippets are
// optional house-style reference passages retrieved for tone matching.
type WriteRequest struct {
	StyleGuide string
	Snippets   []string
	Extracted  models.ExtractedFacts
	Impact     models.ImpactSignals
	Citations  []models.Citation
}

// Writer turns facts and impact signals into the analyst-ready brief.
// A single attempt: a malformed brief fails the article rather than burning
// retries on the most expensive prompt.
type Writer struct {
	client ChatClient
}

func NewWriter(client ChatClient) *Writer {
	return &Writer{client: client}
}

func (w *Writer) Write(ctx context.Context, req WriteRequest) (models.AnalystPacket, error) {
	if req.StyleGuide == "" {
		req.StyleGuide = DefaultStyleGuide
	}

	var packet models.AnalystPacket
	if err := chatJSON(ctx, w.client, WRITE_TEMPERATURE, buildWritePrompt(req), &packet); err != nil {
		return models.AnalystPacket{}, fmt.Errorf("[Writer] brief generation failed: %w", err)
	}

	// The model is told to cite only what it was given, but the citation list
	// is ours to guarantee.
	packet.Citations = req.Citations
	if packet.Bullets == nil {
		packet.Bullets = []string{}
	}
	if packet.Actions == nil {
		packet.Actions = []string{}
	}
	if packet.Risks == nil {
		packet.Risks = []string{}
	}

	return packet, nil
}
