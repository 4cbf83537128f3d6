package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		want   Outcome
	}{
		{429, OutcomeRateLimited},
		{400, OutcomeNonRetryable},
		{401, OutcomeNonRetryable},
		{403, OutcomeNonRetryable},
		{404, OutcomeNonRetryable},
		{422, OutcomeNonRetryable},
		{500, OutcomeRetryable},
		{502, OutcomeRetryable},
		{503, OutcomeRetryable},
	}
	for _, tc := range cases {
		err := NewStatusError("openai", tc.status, "body")
		assert.Equal(t, tc.want, Classify(err), "status %d", tc.status)
	}
}

func TestClassifyWrappedAndUnknownErrors(t *testing.T) {
	inner := NewStatusError("gemini", 429, "quota")
	wrapped := fmt.Errorf("invoking gemini: %w", inner)
	assert.Equal(t, OutcomeRateLimited, Classify(wrapped))

	assert.Equal(t, OutcomeRetryable, Classify(errors.New("connection reset")))
	assert.Equal(t, OutcomeRetryable, Classify(NewTransportError("ollama", errors.New("dial tcp: refused"))))
}

func TestClassifyContextErrorsAreNonRetryable(t *testing.T) {
	assert.Equal(t, OutcomeNonRetryable, Classify(context.Canceled))
	assert.Equal(t, OutcomeNonRetryable, Classify(fmt.Errorf("call: %w", context.DeadlineExceeded)))
}
