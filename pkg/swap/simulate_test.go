package swap

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"pocketdex/pkg/types"
	"pocketdex/pkg/venue"
)

var (
	testOwner  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testRouter = "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45"
	testTokenA = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	testTokenB = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

// fakeReadClient scripts the gate's on-chain reads
type fakeReadClient struct {
	tokenBalance  *big.Int
	nativeBalance *big.Int
	allowance     *big.Int
	gasEstimate   uint64
	gasPrice      *big.Int
	estimateErr   error

	estimateCalls  int
	allowanceReads int
}

func newFakeReadClient() *fakeReadClient {
	return &fakeReadClient{
		tokenBalance:  big.NewInt(10_000_000),
		nativeBalance: new(big.Int).Mul(big.NewInt(1), big.NewInt(1e18)),
		allowance:     new(big.Int).Mul(big.NewInt(1), big.NewInt(1e18)),
		gasEstimate:   200_000,
		gasPrice:      big.NewInt(20_000_000_000),
	}
}

func (f *fakeReadClient) TokenBalance(_ context.Context, _, _ common.Address) (*big.Int, error) {
	return new(big.Int).Set(f.tokenBalance), nil
}

func (f *fakeReadClient) NativeBalance(_ context.Context, _ common.Address) (*big.Int, error) {
	return new(big.Int).Set(f.nativeBalance), nil
}

func (f *fakeReadClient) Allowance(_ context.Context, _, _, _ common.Address) (*big.Int, error) {
	f.allowanceReads++
	return new(big.Int).Set(f.allowance), nil
}

func (f *fakeReadClient) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	f.estimateCalls++
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return f.gasEstimate, nil
}

func (f *fakeReadClient) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.gasPrice), nil
}

// fakeVenue returns a scripted quote and counts how often it was asked
type fakeVenue struct {
	name     string
	quote    *types.Quote
	quoteErr error
	calls    int
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) GetQuote(_ context.Context, _ *types.SwapRequest) (*types.Quote, error) {
	f.calls++
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quote, nil
}

func healthyVenue() *fakeVenue {
	return &fakeVenue{
		name: "uniswap-v3",
		quote: &types.Quote{
			Source:    "uniswap-v3",
			AmountOut: big.NewInt(42_000),
			FeeTier:   3000,
			To:        testRouter,
			CallData:  []byte{0x01, 0x02},
			Value:     big.NewInt(0),
		},
	}
}

func gateRequest() *types.SwapRequest {
	return &types.SwapRequest{
		Chain:       types.ChainEVM,
		TokenIn:     testTokenA,
		TokenOut:    testTokenB,
		AmountIn:    big.NewInt(1_000_000),
		Taker:       testOwner.Hex(),
		SlippageBps: 100,
	}
}

func TestSimulateSuccessCarriesGasForExecution(t *testing.T) {
	client := newFakeReadClient()
	gate := NewGate(client)

	result, quote := gate.Simulate(context.Background(), testOwner, gateRequest(), healthyVenue())

	if !result.Success {
		t.Fatalf("Simulate failed: %v", result.Err)
	}
	if result.GasEstimate != 200_000 {
		t.Errorf("gas estimate = %d, want 200000", result.GasEstimate)
	}
	if result.GasPrice.Cmp(client.gasPrice) != 0 {
		t.Errorf("gas price = %s, want the suggested price", result.GasPrice)
	}
	if quote == nil || quote.To != testRouter {
		t.Error("quote missing or not the venue's quote")
	}
}

func TestSimulateFailsFastOnTokenBalance(t *testing.T) {
	client := newFakeReadClient()
	client.tokenBalance = big.NewInt(500)
	gate := NewGate(client)
	v := healthyVenue()

	result, _ := gate.Simulate(context.Background(), testOwner, gateRequest(), v)

	if result.Success {
		t.Fatal("Simulate succeeded despite insufficient token balance")
	}

	var insufficient *InsufficientFundsError
	if !errors.As(result.Err, &insufficient) {
		t.Fatalf("error = %v, want InsufficientFundsError", result.Err)
	}
	if insufficient.Have.Cmp(big.NewInt(500)) != 0 || insufficient.Need.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Errorf("error reports have=%s need=%s, want 500 and 1000000", insufficient.Have, insufficient.Need)
	}

	// Fail-fast: no quote, no estimation once the balance check fails
	if v.calls != 0 {
		t.Errorf("venue quoted %d times, want 0", v.calls)
	}
	if client.estimateCalls != 0 {
		t.Errorf("estimated gas %d times, want 0", client.estimateCalls)
	}
}

func TestSimulateEstimationRevertWithLowAllowanceIsApprovalRequired(t *testing.T) {
	client := newFakeReadClient()
	client.estimateErr = errors.New("execution reverted")
	client.allowance = big.NewInt(0)
	gate := NewGate(client)

	result, quote := gate.Simulate(context.Background(), testOwner, gateRequest(), healthyVenue())

	if result.Success {
		t.Fatal("Simulate succeeded despite an estimation revert")
	}
	if !errors.Is(result.Err, ErrApprovalRequired) {
		t.Fatalf("error = %v, want ErrApprovalRequired", result.Err)
	}
	if !strings.Contains(result.Err.Error(), testRouter) {
		t.Errorf("error = %q, want the spender named", result.Err)
	}
	if quote == nil {
		t.Error("quote dropped; the caller needs it to approve the spender")
	}
}

func TestSimulateEstimationRevertWithSufficientAllowanceStaysGeneric(t *testing.T) {
	client := newFakeReadClient()
	client.estimateErr = errors.New("execution reverted")
	// Allowance covers the swap, so approval cannot be the root cause
	gate := NewGate(client)

	result, _ := gate.Simulate(context.Background(), testOwner, gateRequest(), healthyVenue())

	if result.Success {
		t.Fatal("Simulate succeeded despite an estimation revert")
	}
	if errors.Is(result.Err, ErrApprovalRequired) {
		t.Fatalf("error = %v, must not blame a missing approval", result.Err)
	}
	if !strings.Contains(result.Err.Error(), "gas estimation failed") {
		t.Errorf("error = %q, want the generic estimation failure", result.Err)
	}
}

func TestSimulateNoRoutePassesThrough(t *testing.T) {
	gate := NewGate(newFakeReadClient())
	v := &fakeVenue{name: "uniswap-v3", quoteErr: venue.ErrNoRoute}

	result, _ := gate.Simulate(context.Background(), testOwner, gateRequest(), v)

	if result.Success {
		t.Fatal("Simulate succeeded with no route")
	}
	if !errors.Is(result.Err, venue.ErrNoRoute) {
		t.Fatalf("error = %v, want ErrNoRoute", result.Err)
	}
}

func TestSimulateChecksNativeCostCoverage(t *testing.T) {
	client := newFakeReadClient()
	// 200000 gas * 20 gwei = 4e15 wei needed; fund less than that
	client.nativeBalance = big.NewInt(1_000_000)
	gate := NewGate(client)

	result, _ := gate.Simulate(context.Background(), testOwner, gateRequest(), healthyVenue())

	if result.Success {
		t.Fatal("Simulate succeeded despite unaffordable gas")
	}

	var insufficient *InsufficientFundsError
	if !errors.As(result.Err, &insufficient) {
		t.Fatalf("error = %v, want InsufficientFundsError", result.Err)
	}
	if insufficient.Asset != "native" {
		t.Errorf("asset = %q, want native", insufficient.Asset)
	}
}
