package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"pocketdex/pkg/retry"
	"pocketdex/pkg/types"
)

// Jupiter wraps a Jupiter-style Solana aggregator. The quote endpoint prices
// the route; the swap endpoint returns a fully built transaction that only
// needs the taker's signature. The route payload is passed through opaquely
// between the two calls.
type Jupiter struct {
	baseURL    string
	httpClient *http.Client
}

// NewJupiter creates the Solana aggregator venue
func NewJupiter(baseURL string) *Jupiter {
	return &Jupiter{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Name returns the venue identifier
func (j *Jupiter) Name() string {
	return "jupiter"
}

type jupiterSwapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// GetQuote requests a route and the corresponding ready-to-sign transaction
func (j *Jupiter) GetQuote(ctx context.Context, req *types.SwapRequest) (*types.Quote, error) {
	query := url.Values{}
	query.Set("inputMint", req.TokenIn)
	query.Set("outputMint", req.TokenOut)
	query.Set("amount", req.AmountIn.String())
	query.Set("slippageBps", fmt.Sprintf("%d", req.SlippageBps))

	quoteEndpoint := fmt.Sprintf("%s/quote?%s", j.baseURL, query.Encode())

	var routePayload json.RawMessage
	err := retry.Do(ctx, retry.DefaultAttempts, retry.DefaultDelay, func(ctx context.Context) error {
		return j.getJSON(ctx, quoteEndpoint, &routePayload)
	})
	if err != nil {
		return nil, err
	}

	var routeFields struct {
		OutAmount string `json:"outAmount"`
	}
	if err := json.Unmarshal(routePayload, &routeFields); err != nil {
		return nil, fmt.Errorf("failed to decode route response: %w", err)
	}

	amountOut, ok := new(big.Int).SetString(routeFields.OutAmount, 10)
	if !ok || amountOut.Sign() == 0 {
		return nil, ErrNoRoute
	}

	swapTx, err := j.buildSwapTransaction(ctx, routePayload, req.Taker)
	if err != nil {
		return nil, err
	}

	return &types.Quote{
		Source:         j.Name(),
		AmountOut:      amountOut,
		RawTransaction: swapTx,
	}, nil
}

func (j *Jupiter) buildSwapTransaction(ctx context.Context, routePayload json.RawMessage, taker string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"quoteResponse":    routePayload,
		"userPublicKey":    taker,
		"wrapAndUnwrapSol": true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal swap request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := j.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("aggregator request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apiError(resp)
	}

	var swapResp jupiterSwapResponse
	if err := json.NewDecoder(resp.Body).Decode(&swapResp); err != nil {
		return "", fmt.Errorf("failed to decode swap response: %w", err)
	}

	if swapResp.SwapTransaction == "" {
		return "", fmt.Errorf("aggregator returned empty swap transaction")
	}

	return swapResp.SwapTransaction, nil
}

func (j *Jupiter) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := j.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("aggregator request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode aggregator response: %w", err)
	}

	return nil
}
