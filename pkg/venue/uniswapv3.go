package venue

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"pocketdex/pkg/types"
)

// Uniswap V3 factory pool lookup ABI
const v3FactoryABI = `[
	{"inputs":[{"internalType":"address","name":"","type":"address"},{"internalType":"address","name":"","type":"address"},{"internalType":"uint24","name":"","type":"uint24"}],"name":"getPool","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

// QuoterV2 ABI: quoteExactInputSingle reads live pool liquidity and tick
// state and returns the output a swap would produce right now
const v3QuoterABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"},
					{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
				],
				"internalType": "struct IQuoterV2.QuoteExactInputSingleParams",
				"name": "params",
				"type": "tuple"
			}
		],
		"name": "quoteExactInputSingle",
		"outputs": [
			{"internalType": "uint256", "name": "amountOut", "type": "uint256"},
			{"internalType": "uint160", "name": "sqrtPriceX96After", "type": "uint160"},
			{"internalType": "uint32", "name": "initializedTicksCrossed", "type": "uint32"},
			{"internalType": "uint256", "name": "gasEstimate", "type": "uint256"}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// SwapRouter02 single-pool exact-input swap ABI
const v3RouterABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"},
					{"internalType": "address", "name": "recipient", "type": "address"},
					{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
					{"internalType": "uint256", "name": "amountOutMinimum", "type": "uint256"},
					{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
				],
				"internalType": "struct IV3SwapRouter.ExactInputSingleParams",
				"name": "params",
				"type": "tuple"
			}
		],
		"name": "exactInputSingle",
		"outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// UniswapV3 quotes against concentrated-liquidity pools, searching every
// configured fee tier and selecting the strictly greatest output
type UniswapV3 struct {
	caller     ContractCaller
	factory    common.Address
	quoter     common.Address
	router     common.Address
	feeTiers   []uint32
	factoryABI abi.ABI
	quoterABI  abi.ABI
	routerABI  abi.ABI
}

// NewUniswapV3 creates the concentrated-liquidity venue
func NewUniswapV3(caller ContractCaller, factory, quoter, router string, feeTiers []uint32) (*UniswapV3, error) {
	if len(feeTiers) == 0 {
		feeTiers = []uint32{500, 3000, 10000}
	}

	factoryParsed, err := abi.JSON(strings.NewReader(v3FactoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	quoterParsed, err := abi.JSON(strings.NewReader(v3QuoterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoter ABI: %w", err)
	}
	routerParsed, err := abi.JSON(strings.NewReader(v3RouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	return &UniswapV3{
		caller:     caller,
		factory:    common.HexToAddress(factory),
		quoter:     common.HexToAddress(quoter),
		router:     common.HexToAddress(router),
		feeTiers:   feeTiers,
		factoryABI: factoryParsed,
		quoterABI:  quoterParsed,
		routerABI:  routerParsed,
	}, nil
}

// Name returns the venue identifier
func (u *UniswapV3) Name() string {
	return "uniswap-v3"
}

// GetQuote tries every configured fee tier and returns the one with the
// strictly greatest output. A tier with no deployed pool is skipped, and a
// tier whose lookup fails is treated as unavailable, not fatal; only zero
// valid tiers is ErrNoRoute.
func (u *UniswapV3) GetQuote(ctx context.Context, req *types.SwapRequest) (*types.Quote, error) {
	tokenIn := common.HexToAddress(req.TokenIn)
	tokenOut := common.HexToAddress(req.TokenOut)

	var bestOut *big.Int
	var bestTier uint32

	for _, tier := range u.feeTiers {
		pool, err := u.poolForTier(ctx, tokenIn, tokenOut, tier)
		if err != nil {
			continue // tier unavailable
		}
		if pool == (common.Address{}) {
			continue // no pool deployed at this tier
		}

		amountOut, err := u.quoteTier(ctx, tokenIn, tokenOut, req.AmountIn, tier)
		if err != nil {
			continue
		}

		// Strictly greater wins; first found keeps ties
		if bestOut == nil || amountOut.Cmp(bestOut) > 0 {
			bestOut = amountOut
			bestTier = tier
		}
	}

	if bestOut == nil {
		return nil, ErrNoRoute
	}

	callData, err := u.swapCallData(tokenIn, tokenOut, bestTier, bestOut, req)
	if err != nil {
		return nil, err
	}

	return &types.Quote{
		Source:    u.Name(),
		AmountOut: bestOut,
		FeeTier:   bestTier,
		To:        u.router.Hex(),
		CallData:  callData,
		Value:     big.NewInt(0),
	}, nil
}

func (u *UniswapV3) poolForTier(ctx context.Context, tokenIn, tokenOut common.Address, tier uint32) (common.Address, error) {
	data, err := u.factoryABI.Pack("getPool", tokenIn, tokenOut, big.NewInt(int64(tier)))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack getPool data: %w", err)
	}

	result, err := u.caller.CallContract(ctx, ethereum.CallMsg{To: &u.factory, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to call getPool: %w", err)
	}

	return common.BytesToAddress(result), nil
}

func (u *UniswapV3) quoteTier(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, tier uint32) (*big.Int, error) {
	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		AmountIn          *big.Int
		Fee               *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(tier)),
		SqrtPriceLimitX96: big.NewInt(0),
	}

	data, err := u.quoterABI.Pack("quoteExactInputSingle", params)
	if err != nil {
		return nil, fmt.Errorf("failed to pack quoteExactInputSingle data: %w", err)
	}

	result, err := u.caller.CallContract(ctx, ethereum.CallMsg{To: &u.quoter, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("quoteExactInputSingle failed for tier %d: %w", tier, err)
	}

	outputs, err := u.quoterABI.Unpack("quoteExactInputSingle", result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack quote for tier %d: %w", tier, err)
	}

	amountOut, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected amountOut type for tier %d", tier)
	}

	return amountOut, nil
}

func (u *UniswapV3) swapCallData(tokenIn, tokenOut common.Address, tier uint32, quoteOut *big.Int, req *types.SwapRequest) ([]byte, error) {
	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		AmountIn          *big.Int
		AmountOutMinimum  *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Fee:               big.NewInt(int64(tier)),
		Recipient:         common.HexToAddress(req.Taker),
		AmountIn:          req.AmountIn,
		AmountOutMinimum:  minAmountOut(quoteOut, req.SlippageBps),
		SqrtPriceLimitX96: big.NewInt(0),
	}

	data, err := u.routerABI.Pack("exactInputSingle", params)
	if err != nil {
		return nil, fmt.Errorf("failed to pack exactInputSingle data: %w", err)
	}

	return data, nil
}
