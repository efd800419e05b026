package analysis

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spacesedan/marketbrief/internal/models"
)

// fakeChatClient replays canned completions in order. A nil entry in errs
// means success for that call.
type fakeChatClient struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	idx := f.calls
	f.calls++
	if len(req.Messages) > 0 {
		f.prompts = append(f.prompts, req.Messages[0].Content)
	}

	if idx < len(f.errs) && f.errs[idx] != nil {
		return openai.ChatCompletionResponse{}, f.errs[idx]
	}

	content := ""
	if idx < len(f.responses) {
		content = f.responses[idx]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}, nil
}

func validFactsJSON() string {
	return `{
		"event_type": "EARNINGS",
		"tickers": ["NVDA"],
		"companies": ["NVIDIA"],
		"sectors": ["Technology"],
		"geos": ["U.S."],
		"numerics": {"revenue_growth_yoy": 0.94},
		"markets": ["usa_equities"]
	}`
}

func primaryArticle() models.Article {
	return models.Article{
		URL:          "https://example.com/nvda",
		SourceDomain: "example.com",
		Title:        "NVIDIA beats on revenue",
		Summary:      "Data center demand drove a 94% jump.",
	}
}

func TestExtract_HappyPath(t *testing.T) {
	client := &fakeChatClient{responses: []string{validFactsJSON()}}
	extractor := NewExtractor(client)

	facts, err := extractor.Extract(context.Background(), primaryArticle(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if facts.EventType != "EARNINGS" {
		t.Errorf("expected EARNINGS, got %s", facts.EventType)
	}
	if len(facts.Tickers) != 1 || facts.Tickers[0] != "NVDA" {
		t.Errorf("unexpected tickers: %v", facts.Tickers)
	}
	if client.calls != 1 {
		t.Errorf("clean output should not trigger retries, got %d calls", client.calls)
	}
}

func TestExtract_RetriesMalformedJSON(t *testing.T) {
	client := &fakeChatClient{responses: []string{
		`{"event_type": "EARNINGS", "tickers": [`,
		validFactsJSON(),
	}}
	extractor := NewExtractor(client)

	facts, err := extractor.Extract(context.Background(), primaryArticle(), nil)
	if err != nil {
		t.Fatalf("expected the retry to recover, got: %v", err)
	}
	if facts.EventType != "EARNINGS" {
		t.Errorf("unexpected facts after retry: %+v", facts)
	}
	if client.calls != 2 {
		t.Errorf("expected exactly one retry, got %d calls", client.calls)
	}
}

func TestExtract_CodeFencedReplyAccepted(t *testing.T) {
	client := &fakeChatClient{responses: []string{"```json\n" + validFactsJSON() + "\n```"}}
	extractor := NewExtractor(client)

	if _, err := extractor.Extract(context.Background(), primaryArticle(), nil); err != nil {
		t.Fatalf("fenced JSON should parse on the first attempt: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("expected 1 call, got %d", client.calls)
	}
}

func TestExtract_UnknownEventTypeIsRetried(t *testing.T) {
	client := &fakeChatClient{responses: []string{
		`{"event_type": "EARNINGS_SURPRISE"}`,
		validFactsJSON(),
	}}
	extractor := NewExtractor(client)

	facts, err := extractor.Extract(context.Background(), primaryArticle(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if facts.EventType != "EARNINGS" {
		t.Errorf("expected the retried facts, got %+v", facts)
	}
}

func TestExtract_EventTypeCaseNormalized(t *testing.T) {
	client := &fakeChatClient{responses: []string{`{"event_type": "m&a"}`}}
	extractor := NewExtractor(client)

	facts, err := extractor.Extract(context.Background(), primaryArticle(), nil)
	if err != nil {
		t.Fatalf("lower-cased event type should be accepted: %v", err)
	}
	if facts.EventType != "M&A" {
		t.Errorf("expected M&A, got %s", facts.EventType)
	}
}

func TestExtract_UnknownMarketsFiltered(t *testing.T) {
	client := &fakeChatClient{responses: []string{
		`{"event_type": "MACRO_POLICY", "markets": ["fx_usd", "crypto", "usa_equities"]}`,
	}}
	extractor := NewExtractor(client)

	facts, err := extractor.Extract(context.Background(), primaryArticle(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"fx_usd", "usa_equities"}
	if len(facts.Markets) != len(want) {
		t.Fatalf("expected %v, got %v", want, facts.Markets)
	}
	for i, m := range want {
		if facts.Markets[i] != m {
			t.Errorf("expected %v, got %v", want, facts.Markets)
		}
	}
}

func TestExtract_NilCollectionsNormalized(t *testing.T) {
	client := &fakeChatClient{responses: []string{`{"event_type": "OTHER"}`}}
	extractor := NewExtractor(client)

	facts, err := extractor.Extract(context.Background(), primaryArticle(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if facts.Tickers == nil || facts.Companies == nil || facts.Sectors == nil ||
		facts.Geos == nil || facts.Numerics == nil {
		t.Errorf("collections must never be nil: %+v", facts)
	}
}

func TestExtract_ExhaustedRetriesFail(t *testing.T) {
	client := &fakeChatClient{responses: []string{"not json", "still not json", "nope"}}
	extractor := NewExtractor(client)

	_, err := extractor.Extract(context.Background(), primaryArticle(), nil)
	if !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("expected schema violation after exhaustion, got: %v", err)
	}
	if client.calls != EXTRACT_MAX_ATTEMPTS {
		t.Errorf("expected %d attempts, got %d", EXTRACT_MAX_ATTEMPTS, client.calls)
	}
}

func TestExtract_TransportErrorNotRetried(t *testing.T) {
	transportErr := errors.New("connection refused")
	client := &fakeChatClient{errs: []error{transportErr}}
	extractor := NewExtractor(client)

	_, err := extractor.Extract(context.Background(), primaryArticle(), nil)
	if !errors.Is(err, transportErr) {
		t.Fatalf("expected the transport error to surface, got: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("transport errors must not be retried, got %d calls", client.calls)
	}
}

func TestBuildArticlesBlock_IncludesRelated(t *testing.T) {
	primary := primaryArticle()
	related := []models.Article{
		{URL: "https://other.com/b", SourceDomain: "other.com", Title: "Chip demand surges", Summary: "Analysts raise targets."},
	}

	block := BuildArticlesBlock(primary, related)
	lines := 0
	for _, c := range block {
		if c == '\n' {
			lines++
		}
	}
	// Two articles, two lines each (header + indented summary).
	if lines != 3 {
		t.Errorf("expected 4 lines (3 newlines) in the block, got %d newlines:\n%s", lines, block)
	}
}
