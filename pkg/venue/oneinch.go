package venue

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"pocketdex/pkg/retry"
	"pocketdex/pkg/types"
)

// OneInch wraps a 1inch-style aggregator HTTP API. One request returns both
// the output estimate and the executable calldata; there is no multi-tier
// search on this venue.
type OneInch struct {
	baseURL    string
	chainID    int64
	apiKey     string
	httpClient *http.Client
}

// NewOneInch creates the aggregator venue
func NewOneInch(baseURL string, chainID int64, apiKey string) *OneInch {
	return &OneInch{
		baseURL: baseURL,
		chainID: chainID,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Name returns the venue identifier
func (o *OneInch) Name() string {
	return "1inch"
}

type oneInchSwapResponse struct {
	DstAmount string `json:"dstAmount"`
	Tx        struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Value string `json:"value"`
	} `json:"tx"`
}

// GetQuote requests a routed swap from the aggregator
func (o *OneInch) GetQuote(ctx context.Context, req *types.SwapRequest) (*types.Quote, error) {
	query := url.Values{}
	query.Set("src", req.TokenIn)
	query.Set("dst", req.TokenOut)
	query.Set("amount", req.AmountIn.String())
	query.Set("from", req.Taker)
	query.Set("slippage", fmt.Sprintf("%g", float64(req.SlippageBps)/100))
	query.Set("disableEstimate", "true")

	endpoint := fmt.Sprintf("%s/%d/swap?%s", o.baseURL, o.chainID, query.Encode())

	var swapResp oneInchSwapResponse
	err := retry.Do(ctx, retry.DefaultAttempts, retry.DefaultDelay, func(ctx context.Context) error {
		return o.getJSON(ctx, endpoint, &swapResp)
	})
	if err != nil {
		return nil, err
	}

	amountOut, ok := new(big.Int).SetString(swapResp.DstAmount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid dstAmount in aggregator response: %q", swapResp.DstAmount)
	}
	if amountOut.Sign() == 0 {
		return nil, ErrNoRoute
	}

	callData, err := decodeHexData(swapResp.Tx.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid tx data in aggregator response: %w", err)
	}

	value := big.NewInt(0)
	if swapResp.Tx.Value != "" {
		if _, ok := value.SetString(swapResp.Tx.Value, 10); !ok {
			return nil, fmt.Errorf("invalid tx value in aggregator response: %q", swapResp.Tx.Value)
		}
	}

	return &types.Quote{
		Source:    o.Name(),
		AmountOut: amountOut,
		To:        swapResp.Tx.To,
		CallData:  callData,
		Value:     value,
	}, nil
}

func (o *OneInch) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(httpReq)
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

// apiError extracts the actual error message from an aggregator error body
func apiError(resp *http.Response) error {
	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr == nil && len(bodyBytes) > 0 {
		var errorResp map[string]interface{}
		if jsonErr := json.Unmarshal(bodyBytes, &errorResp); jsonErr == nil {
			if description, ok := errorResp["description"].(string); ok {
				return fmt.Errorf("API error (status %d): %s", resp.StatusCode, description)
			}
			if message, ok := errorResp["message"].(string); ok {
				return fmt.Errorf("API error (status %d): %s", resp.StatusCode, message)
			}
		}
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}
	return fmt.Errorf("API returned status code %d", resp.StatusCode)
}

func decodeHexData(data string) ([]byte, error) {
	if len(data) >= 2 && data[:2] == "0x" {
		data = data[2:]
	}
	return hex.DecodeString(data)
}
