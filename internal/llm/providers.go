package llm

import (
	"context"
	"time"

	"github.com/cinelog/review-cli/internal/resilience"
	"github.com/cinelog/review-cli/pkg/anthropic"
	"github.com/cinelog/review-cli/pkg/openai"
)

// CallPolicy bounds a single model invocation: per-call timeout plus capped
// retries with backoff. A call that exhausts the policy surfaces as an error
// to the stage, which records it as a missing vote rather than failing the
// batch.
type CallPolicy struct {
	Timeout time.Duration
	Retry   resilience.RetryConfig
}

// DefaultCallPolicy returns the invocation bounds used in production.
func DefaultCallPolicy() CallPolicy {
	return CallPolicy{
		Timeout: 10 * time.Second,
		Retry:   resilience.DefaultRetryConfig(),
	}
}

// NewAnthropicInvoker adapts an anthropic.Client to the Invoker contract.
func NewAnthropicInvoker(client anthropic.Client, maxTokens int64, policy CallPolicy) Invoker {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	retry := policy.Retry
	retry.OnRetry = resilience.RetryLogger("anthropic", "create_message")

	return InvokerFunc(func(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error) {
		return resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
			callCtx, cancel := withCallTimeout(ctx, policy.Timeout)
			defer cancel()

			resp, err := client.CreateMessage(callCtx, anthropic.MessageRequest{
				Model:     modelID,
				MaxTokens: maxTokens,
				System:    systemPrompt,
				Messages: []anthropic.Message{
					{Role: "user", Content: userPrompt},
				},
			})
			if err != nil {
				return "", err
			}
			resp.Usage.LogCost(modelID, "invoke")
			return resp.Text, nil
		})
	})
}

// NewOpenAIInvoker adapts an openai.Client to the Invoker contract.
func NewOpenAIInvoker(client openai.Client, policy CallPolicy) Invoker {
	retry := policy.Retry
	retry.OnRetry = resilience.RetryLogger("openai", "chat_completion")

	return InvokerFunc(func(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error) {
		return resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
			callCtx, cancel := withCallTimeout(ctx, policy.Timeout)
			defer cancel()

			resp, err := client.Complete(callCtx, openai.CompletionRequest{
				Model:        modelID,
				SystemPrompt: systemPrompt,
				UserPrompt:   userPrompt,
			})
			if err != nil {
				return "", err
			}
			return resp.Text, nil
		})
	})
}

func withCallTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
