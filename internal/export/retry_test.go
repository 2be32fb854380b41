package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nsls2-sst/ucal-export/internal/logging"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
)

func TestWithRetry(t *testing.T) {
	logger := logging.FallbackLogger()
	ctx := context.Background()
	policy := RetryPolicy{Retries: DefaultRetries, Delay: time.Millisecond}

	t.Run("stops after three attempts", func(t *testing.T) {
		attempts := 0
		_, err := WithRetry(ctx, policy, logger, func(context.Context) (*Result, error) {
			attempts++
			return nil, errors.New("catalog unavailable")
		})
		if err == nil {
			t.Fatalf("Expected an error")
		}
		if attempts != 3 {
			t.Fatalf("Expected 3 attempts, got %d", attempts)
		}
	})

	t.Run("returns the first success", func(t *testing.T) {
		attempts := 0
		result, err := WithRetry(ctx, policy, logger, func(context.Context) (*Result, error) {
			attempts++
			if attempts < 2 {
				return nil, errors.New("transient")
			}
			return &Result{Written: []string{"XDI"}}, nil
		})
		if err != nil {
			t.Fatalf("WithRetry failed: %v", err)
		}
		if attempts != 2 || len(result.Written) != 1 {
			t.Fatalf("Unexpected result %+v after %d attempts", result, attempts)
		}
	})

	t.Run("does not retry a malformed run id", func(t *testing.T) {
		attempts := 0
		_, err := WithRetry(ctx, policy, logger, func(context.Context) (*Result, error) {
			attempts++
			return nil, serviceerrors.NewServiceError(messages.InvalidRunID, "RunId", "not-a-uuid")
		})
		if attempts != 1 {
			t.Fatalf("Expected 1 attempt, got %d", attempts)
		}
		if !serviceerrors.IsMessage(err, messages.InvalidRunID) {
			t.Fatalf("Expected InvalidRunID, got %v", err)
		}
	})

	t.Run("no retries", func(t *testing.T) {
		attempts := 0
		_, _ = WithRetry(ctx, RetryPolicy{Retries: 0, Delay: time.Millisecond}, logger, func(context.Context) (*Result, error) {
			attempts++
			return nil, errors.New("fail")
		})
		if attempts != 1 {
			t.Fatalf("Expected 1 attempt, got %d", attempts)
		}
	})
}
