package venue

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pocketdex/pkg/types"
)

func oneInchRequest() *types.SwapRequest {
	return &types.SwapRequest{
		Chain:       types.ChainEVM,
		TokenIn:     testTokenA,
		TokenOut:    testTokenB,
		AmountIn:    big.NewInt(1_000_000),
		Taker:       testTaker,
		SlippageBps: 100,
	}
}

func TestOneInchQuoteParsesSwapResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/1/swap") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("src"); got != testTokenA {
			t.Errorf("src = %s, want %s", got, testTokenA)
		}
		if got := r.URL.Query().Get("amount"); got != "1000000" {
			t.Errorf("amount = %s, want 1000000", got)
		}
		if got := r.URL.Query().Get("slippage"); got != "1" {
			t.Errorf("slippage = %s, want 1", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want the bearer token", got)
		}

		fmt.Fprint(w, `{
			"dstAmount": "123456789",
			"tx": {
				"to": "0x1111111254EEB25477B68fb85Ed929f73A960582",
				"data": "0xdeadbeef",
				"value": "0"
			}
		}`)
	}))
	defer server.Close()

	venue := NewOneInch(server.URL, 1, "test-key")

	quote, err := venue.GetQuote(context.Background(), oneInchRequest())
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}

	if quote.AmountOut.Cmp(big.NewInt(123456789)) != 0 {
		t.Errorf("amount out %s, want 123456789", quote.AmountOut)
	}
	if quote.To != "0x1111111254EEB25477B68fb85Ed929f73A960582" {
		t.Errorf("quote targets %s, want the aggregator router", quote.To)
	}
	if hex.EncodeToString(quote.CallData) != "deadbeef" {
		t.Errorf("calldata = %x, want deadbeef", quote.CallData)
	}
}

func TestOneInchSurfacesAPIErrorDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"description": "insufficient liquidity"}`)
	}))
	defer server.Close()

	venue := NewOneInch(server.URL, 1, "")

	_, err := venue.GetQuote(context.Background(), oneInchRequest())
	if err == nil {
		t.Fatal("GetQuote succeeded, want an error")
	}
	if !strings.Contains(err.Error(), "insufficient liquidity") {
		t.Errorf("error = %q, want the API description surfaced", err)
	}
}

func TestOneInchZeroOutputIsNoRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"dstAmount": "0", "tx": {"to": "", "data": "0x", "value": "0"}}`)
	}))
	defer server.Close()

	venue := NewOneInch(server.URL, 1, "")

	_, err := venue.GetQuote(context.Background(), oneInchRequest())
	if err != ErrNoRoute {
		t.Fatalf("GetQuote error = %v, want ErrNoRoute", err)
	}
}
