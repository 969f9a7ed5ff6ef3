// submitter.go posts signed orders to the exchange's CLOB REST endpoint.
//
// Every order is rate-limited, assigned a monotonic nonce, and signed
// immediately before submission — nonce assignment and signing happen back
// to back so a later order can never be signed with an earlier nonce than
// one already in flight. A rate-limited order is dropped, not queued:
// staleness outweighs freshness for a latency-sensitive taker order.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"sniper/internal/errs"
	"sniper/pkg/types"
)

// Submitter signs and submits orders to the exchange.
type Submitter struct {
	http        *resty.Client
	apiKey      string
	signer      *Signer
	rateLimiter *RateLimiter
	nonce       atomic.Uint64
	logger      *slog.Logger
}

// NewSubmitter creates a Submitter against baseURL, authenticating with
// apiKey and signing orders with signer.
func NewSubmitter(baseURL, apiKey string, signer *Signer, logger *slog.Logger) *Submitter {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(2 * time.Second).
		SetHeader("POLY_API_KEY", apiKey)

	return &Submitter{
		http:        client,
		apiKey:      apiKey,
		signer:      signer,
		rateLimiter: NewRateLimiter(),
		logger:      logger.With("component", "submitter"),
	}
}

// Submit rate-limits, signs, and posts order. A non-2xx response or a
// rejected order surfaces as an error without terminating the submitter —
// callers decide whether to retry.
func (s *Submitter) Submit(ctx context.Context, order types.Order) (types.OrderResponse, error) {
	if !s.rateLimiter.Order.Allow() {
		s.logger.Warn("order dropped: rate limited", "token_id", order.TokenID)
		return types.OrderResponse{}, &errs.RateLimited{}
	}

	// Fetch-and-add: the first order submitted carries nonce 0, and every
	// later one a strictly larger value.
	order.Nonce = s.nonce.Add(1) - 1

	signed, err := s.signer.SignOrder(order)
	if err != nil {
		return types.OrderResponse{}, fmt.Errorf("sign order: %w", err)
	}

	payload := types.OrderPayload{
		Order:     signed,
		Owner:     signed.Signer,
		Signature: signed.Signature,
	}

	var resp types.OrderResponse
	httpResp, err := s.http.R().
		SetContext(ctx).
		SetBody([]types.OrderPayload{payload}).
		SetResult(&resp).
		Post("/orders")
	if err != nil {
		return types.OrderResponse{}, &errs.TransientNetworkError{Err: fmt.Errorf("post order: %w", err)}
	}
	if httpResp.IsError() {
		return resp, &errs.SubmissionError{Err: fmt.Errorf("order rejected: status %d", httpResp.StatusCode())}
	}

	return resp, nil
}

// Cancel resolves an open order by its server-side id. There is no local
// cancellation state to reconcile — the exchange's answer is authoritative.
func (s *Submitter) Cancel(ctx context.Context, orderID string) error {
	httpResp, err := s.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"orderID": orderID}).
		Delete("/order")
	if err != nil {
		return &errs.TransientNetworkError{Err: fmt.Errorf("cancel order: %w", err)}
	}
	if httpResp.IsError() {
		return &errs.SubmissionError{Err: fmt.Errorf("cancel rejected: status %d", httpResp.StatusCode())}
	}
	return nil
}
