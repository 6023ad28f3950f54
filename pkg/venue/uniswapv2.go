package venue

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"pocketdex/pkg/types"
)

// Constant-product router ABI: price read plus exact-input swap
const v2RouterABI = `[
	{"inputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMin","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"}
]`

// Swap calldata carries an on-chain deadline after which the router rejects
// execution
const v2SwapDeadline = 15 * time.Minute

// UniswapV2 quotes against a constant-product two-asset pool. It is the
// fallback when no concentrated-liquidity tier yields a trade: its quote is
// returned unconditionally, with no tier comparison.
type UniswapV2 struct {
	caller    ContractCaller
	router    common.Address
	routerABI abi.ABI
	now       func() time.Time
}

// NewUniswapV2 creates the constant-product venue
func NewUniswapV2(caller ContractCaller, router string) (*UniswapV2, error) {
	parsed, err := abi.JSON(strings.NewReader(v2RouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	return &UniswapV2{
		caller:    caller,
		router:    common.HexToAddress(router),
		routerABI: parsed,
		now:       time.Now,
	}, nil
}

// Name returns the venue identifier
func (u *UniswapV2) Name() string {
	return "uniswap-v2"
}

// GetQuote reads the pair price via getAmountsOut and builds the swap
// calldata
func (u *UniswapV2) GetQuote(ctx context.Context, req *types.SwapRequest) (*types.Quote, error) {
	path := []common.Address{common.HexToAddress(req.TokenIn), common.HexToAddress(req.TokenOut)}

	data, err := u.routerABI.Pack("getAmountsOut", req.AmountIn, path)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getAmountsOut data: %w", err)
	}

	result, err := u.caller.CallContract(ctx, ethereum.CallMsg{To: &u.router, Data: data}, nil)
	if err != nil {
		// A missing pair reverts the read; for this venue that means no route
		return nil, ErrNoRoute
	}

	outputs, err := u.routerABI.Unpack("getAmountsOut", result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack getAmountsOut: %w", err)
	}

	amounts, ok := outputs[0].([]*big.Int)
	if !ok || len(amounts) < 2 {
		return nil, fmt.Errorf("unexpected getAmountsOut result shape")
	}

	amountOut := amounts[len(amounts)-1]
	if amountOut.Sign() == 0 {
		return nil, ErrNoRoute
	}

	deadline := big.NewInt(u.now().Add(v2SwapDeadline).Unix())
	callData, err := u.routerABI.Pack("swapExactTokensForTokens",
		req.AmountIn,
		minAmountOut(amountOut, req.SlippageBps),
		path,
		common.HexToAddress(req.Taker),
		deadline,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack swapExactTokensForTokens data: %w", err)
	}

	return &types.Quote{
		Source:    u.Name(),
		AmountOut: amountOut,
		To:        u.router.Hex(),
		CallData:  callData,
		Value:     big.NewInt(0),
	}, nil
}
