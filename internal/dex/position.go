package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// ManagedPosition is the record a NonfungiblePositionManager keeps per token id.
// TokensOwed0/1 are fees checkpointed into the record, in smallest units.
type ManagedPosition struct {
	TokenID     *big.Int
	Operator    common.Address
	Token0      common.Address
	Token1      common.Address
	Fee         uint32
	TickLower   int32
	TickUpper   int32
	Liquidity   *big.Int
	TokensOwed0 *big.Int
	TokensOwed1 *big.Int
}

// Slot0 holds the leading slot0 fields of a V3 pool.
type Slot0 struct {
	SqrtPriceX96 *big.Int
	Tick         int32
}

type positionsOutput struct {
	Nonce                    *big.Int
	Operator                 common.Address
	Token0                   common.Address
	Token1                   common.Address
	Fee                      *big.Int
	TickLower                *big.Int
	TickUpper                *big.Int
	Liquidity                *big.Int
	FeeGrowthInside0LastX128 *big.Int
	FeeGrowthInside1LastX128 *big.Int
	TokensOwed0              *big.Int
	TokensOwed1              *big.Int
}

// FetchPosition reads positions(tokenId) from the position manager.
func FetchPosition(ctx context.Context, caller Caller, manager common.Address, tokenID *big.Int) (ManagedPosition, error) {
	if caller == nil {
		return ManagedPosition{}, fmt.Errorf("chain client is nil")
	}
	parsed, err := PositionManagerABI()
	if err != nil {
		return ManagedPosition{}, fmt.Errorf("parse position manager abi: %w", err)
	}

	data, err := parsed.Pack("positions", tokenID)
	if err != nil {
		return ManagedPosition{}, fmt.Errorf("pack positions: %w", err)
	}
	resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &manager, Data: data}, nil)
	if err != nil {
		return ManagedPosition{}, fmt.Errorf("call positions: %w", err)
	}

	var out positionsOutput
	if err := parsed.UnpackIntoInterface(&out, "positions", resp); err != nil {
		return ManagedPosition{}, fmt.Errorf("unpack positions: %w", err)
	}
	if out.Token0 == (common.Address{}) || out.Token1 == (common.Address{}) {
		return ManagedPosition{}, fmt.Errorf("position %s not found", tokenID)
	}

	fee, err := uint24FromBig(out.Fee)
	if err != nil {
		return ManagedPosition{}, fmt.Errorf("fee: %w", err)
	}
	tickLower, err := int24FromBig(out.TickLower)
	if err != nil {
		return ManagedPosition{}, fmt.Errorf("tick lower: %w", err)
	}
	tickUpper, err := int24FromBig(out.TickUpper)
	if err != nil {
		return ManagedPosition{}, fmt.Errorf("tick upper: %w", err)
	}

	return ManagedPosition{
		TokenID:     new(big.Int).Set(tokenID),
		Operator:    out.Operator,
		Token0:      out.Token0,
		Token1:      out.Token1,
		Fee:         fee,
		TickLower:   tickLower,
		TickUpper:   tickUpper,
		Liquidity:   out.Liquidity,
		TokensOwed0: out.TokensOwed0,
		TokensOwed1: out.TokensOwed1,
	}, nil
}

// FetchOwner reads ownerOf(tokenId) from the position manager.
func FetchOwner(ctx context.Context, caller Caller, manager common.Address, tokenID *big.Int) (common.Address, error) {
	parsed, err := PositionManagerABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse position manager abi: %w", err)
	}
	values, err := callMethod(ctx, caller, manager, parsed, "ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// FetchPoolAddress resolves the pool for a token pair and fee tier through the
// position manager's factory.
func FetchPoolAddress(ctx context.Context, caller Caller, manager, token0, token1 common.Address, fee uint32) (common.Address, error) {
	managerABI, err := PositionManagerABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse position manager abi: %w", err)
	}
	values, err := callMethod(ctx, caller, manager, managerABI, "factory")
	if err != nil {
		return common.Address{}, err
	}
	factory, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("factory: %w", err)
	}

	parsed, err := FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err = callMethod(ctx, caller, factory, parsed, "getPool", token0, token1, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	pool, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("pool: %w", err)
	}
	if pool == (common.Address{}) {
		return common.Address{}, fmt.Errorf("no pool for %s/%s fee %d", token0.Hex(), token1.Hex(), fee)
	}
	return pool, nil
}

// FetchSlot0 reads the current sqrt price and tick of a V3 pool.
func FetchSlot0(ctx context.Context, caller Caller, pool common.Address) (Slot0, error) {
	parsed, err := V3PoolABI()
	if err != nil {
		return Slot0{}, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, caller, pool, parsed, "slot0")
	if err != nil {
		return Slot0{}, err
	}
	if len(values) < 2 {
		return Slot0{}, fmt.Errorf("slot0 return size %d", len(values))
	}
	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return Slot0{}, fmt.Errorf("sqrt price: %w", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return Slot0{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return Slot0{}, fmt.Errorf("tick: %w", err)
	}
	return Slot0{SqrtPriceX96: sqrtPrice, Tick: tick}, nil
}
