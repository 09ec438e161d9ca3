/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package gateway

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/angryss/idpstore/errors"
)

// RetryPolicy bounds the internal retry of transient backend failures.
// Conditional-write failures and deserialization failures are never retried.
type RetryPolicy struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

type retryPolicy RetryPolicy

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Second,
	}
}

// withRetry runs fn, retrying throttling and internal-server failures with
// exponential backoff until the policy's attempt ceiling, then surfaces
// Unavailable. Errors of any other shape propagate unchanged on first sight.
func (g *Gateway) withRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	backoff := g.retry.InitialBackoff
	attempt := 0

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		// A lapsed deadline is surfaced as Unavailable, never as a raw
		// context error from deep inside the SDK.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.NewUnavailableError(operation, attempt+1, ctxErr)
		}
		if !isTransient(err) {
			return err
		}

		attempt++
		if attempt > g.retry.MaxRetries {
			g.log.Warn("retries exhausted",
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Error(err))
			return errors.NewUnavailableError(operation, attempt, err)
		}

		g.log.Debug("transient backend failure, backing off",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.NewUnavailableError(operation, attempt, ctx.Err())
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * g.retry.BackoffMultiplier)
		if backoff > g.retry.MaxBackoff {
			backoff = g.retry.MaxBackoff
		}
	}
}

func isTransient(err error) bool {
	var throttled *types.ProvisionedThroughputExceededException
	var requestLimit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	if goerrors.As(err, &throttled) || goerrors.As(err, &requestLimit) || goerrors.As(err, &internal) {
		return true
	}
	var apiErr smithy.APIError
	if goerrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceUnavailable":
			return true
		}
	}
	return false
}
