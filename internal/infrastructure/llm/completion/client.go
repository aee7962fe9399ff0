package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/ports"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/resilience"
)

const (
	defaultModel   = "small-1"
	defaultTimeout = 30 * time.Second

	defaultReasoning  = "AI analysis completed"
	defaultConfidence = 0.8
	defaultUrgency    = "normal"
	defaultComplexity = "medium"
)

// Client talks to a chat-completion endpoint that answers with
// {"result":{"response":[{"content":"..."}]}}.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func New(opts Options, executor *resilience.Executor) *Client {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Result struct {
		Response []struct {
			Content string `json:"content"`
		} `json:"response"`
	} `json:"result"`
}

func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	request := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: false,
	}

	var response chatResponse
	call := func(callCtx context.Context) error {
		response = chatResponse{}
		return c.postJSON(callCtx, "/chat-completion", request, &response, "chat_completion")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, resilience.OpRecommend, call, classifyCompletionError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("completion.chat", err)
	}

	if len(response.Result.Response) == 0 {
		return "", fmt.Errorf("chat completion returned no content")
	}
	content := strings.TrimSpace(response.Result.Response[0].Content)
	if content == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return content, nil
}

// Recommender maps a free-text legal need to catalog service ids.
type Recommender struct {
	client  *Client
	catalog ports.Catalog
}

func NewRecommender(client *Client, catalog ports.Catalog) *Recommender {
	return &Recommender{client: client, catalog: catalog}
}

type analysis struct {
	RecommendedServices       []string `json:"recommended_services"`
	Reasoning                 string   `json:"reasoning"`
	Confidence                float64  `json:"confidence"`
	AdditionalRecommendations []string `json:"additional_recommendations"`
	Urgency                   string   `json:"urgency"`
	EstimatedComplexity       string   `json:"estimated_complexity"`
}

func (r *Recommender) Recommend(ctx context.Context, description string) (*domain.AIInsights, error) {
	content, err := r.client.chat(ctx, systemPrompt, buildAnalysisPrompt(description, r.catalog.Services()))
	if err != nil {
		return nil, domain.WrapError(domain.ErrAIService, "recommend services", err)
	}

	var parsed analysis
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return nil, domain.WrapError(domain.ErrAIService, "parse recommendation", err)
	}
	return toInsights(parsed), nil
}

func toInsights(a analysis) *domain.AIInsights {
	out := &domain.AIInsights{
		RecommendedServices:       a.RecommendedServices,
		Reasoning:                 a.Reasoning,
		Confidence:                a.Confidence,
		AdditionalRecommendations: a.AdditionalRecommendations,
		Urgency:                   a.Urgency,
		EstimatedComplexity:       a.EstimatedComplexity,
	}
	if out.RecommendedServices == nil {
		out.RecommendedServices = []string{}
	}
	if out.AdditionalRecommendations == nil {
		out.AdditionalRecommendations = []string{}
	}
	if strings.TrimSpace(out.Reasoning) == "" {
		out.Reasoning = defaultReasoning
	}
	if out.Confidence == 0 {
		out.Confidence = defaultConfidence
	}
	if out.Urgency == "" {
		out.Urgency = defaultUrgency
	}
	if out.EstimatedComplexity == "" {
		out.EstimatedComplexity = defaultComplexity
	}
	return out
}
