package dex

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"positionScope/internal/dex/dextest"
)

var (
	testManager = common.HexToAddress("0x46A15B0b27311cedF172AB29E4f4766fbE7F4364")
	testFactory = common.HexToAddress("0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865")
	testPool    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testToken0  = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testToken1  = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func mustABI(t *testing.T, load func() (abi.ABI, error)) abi.ABI {
	t.Helper()
	parsed, err := load()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	return parsed
}

func bytes32(text string) [32]byte {
	var out [32]byte
	copy(out[:], text)
	return out
}

func TestFetchTokenMetaString(t *testing.T) {
	erc20 := mustABI(t, ERC20ABI)
	caller := dextest.NewCaller()
	caller.Reply(t, testToken0, erc20, "decimals", uint8(18))
	caller.Reply(t, testToken0, erc20, "symbol", "CAKE")
	caller.Reply(t, testToken0, erc20, "name", "PancakeSwap Token")

	meta, err := FetchTokenMeta(context.Background(), caller, testToken0, zap.NewNop())
	if err != nil {
		t.Fatalf("fetch meta: %v", err)
	}
	if meta.Decimals != 18 || meta.Symbol != "CAKE" || meta.Name != "PancakeSwap Token" {
		t.Fatalf("meta mismatch: %+v", meta)
	}
	if meta.Address != testToken0.Hex() {
		t.Fatalf("address mismatch: %s", meta.Address)
	}
}

func TestFetchTokenMetaBytes32Fallback(t *testing.T) {
	erc20 := mustABI(t, ERC20ABI)
	erc20b := mustABI(t, ERC20Bytes32ABI)
	caller := dextest.NewCaller()
	caller.Reply(t, testToken1, erc20, "decimals", uint8(6))
	caller.Reply(t, testToken1, erc20b, "symbol", bytes32("MKR"))
	caller.Reply(t, testToken1, erc20b, "name", bytes32("Maker"))

	meta, err := FetchTokenMeta(context.Background(), caller, testToken1, nil)
	if err != nil {
		t.Fatalf("fetch meta: %v", err)
	}
	if meta.Decimals != 6 {
		t.Fatalf("decimals mismatch: %d", meta.Decimals)
	}
	if meta.Symbol != "MKR" {
		t.Fatalf("symbol mismatch: %q", meta.Symbol)
	}
	if meta.Name != "Maker" {
		t.Fatalf("name mismatch: %q", meta.Name)
	}
}

func TestFetchTokenMetaRequiresText(t *testing.T) {
	erc20 := mustABI(t, ERC20ABI)
	cases := []struct {
		name   string
		method string
	}{
		{name: "symbol reverts", method: "symbol"},
		{name: "name reverts", method: "name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			caller := dextest.NewCaller()
			caller.Reply(t, testToken0, erc20, "decimals", uint8(18))
			caller.Reply(t, testToken0, erc20, "symbol", "CAKE")
			caller.Reply(t, testToken0, erc20, "name", "PancakeSwap Token")
			caller.Fail(t, testToken0, erc20, tc.method, errors.New("execution reverted"))

			_, err := FetchTokenMeta(context.Background(), caller, testToken0, nil)
			if err == nil || !strings.Contains(err.Error(), tc.method) {
				t.Fatalf("expected %s error, got %v", tc.method, err)
			}
		})
	}
}

func TestFetchTokenMetaRequiresDecimals(t *testing.T) {
	erc20 := mustABI(t, ERC20ABI)
	caller := dextest.NewCaller()
	caller.Reply(t, testToken0, erc20, "symbol", "CAKE")

	if _, err := FetchTokenMeta(context.Background(), caller, testToken0, nil); err == nil {
		t.Fatalf("expected error without decimals")
	}
}

func TestFetchPosition(t *testing.T) {
	manager := mustABI(t, PositionManagerABI)
	caller := dextest.NewCaller()
	operator := common.HexToAddress("0x2222222222222222222222222222222222222222")
	caller.Reply(t, testManager, manager, "positions",
		big.NewInt(0),
		operator,
		testToken0,
		testToken1,
		big.NewInt(2500),
		big.NewInt(-887200),
		big.NewInt(-200),
		big.NewInt(123456789),
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(1500000000000000000),
		big.NewInt(42),
	)

	pos, err := FetchPosition(context.Background(), caller, testManager, big.NewInt(77))
	if err != nil {
		t.Fatalf("fetch position: %v", err)
	}
	if pos.TokenID.Int64() != 77 {
		t.Fatalf("token id mismatch: %s", pos.TokenID)
	}
	if pos.Operator != operator || pos.Token0 != testToken0 || pos.Token1 != testToken1 {
		t.Fatalf("address mismatch: %+v", pos)
	}
	if pos.Fee != 2500 || pos.TickLower != -887200 || pos.TickUpper != -200 {
		t.Fatalf("fee/tick mismatch: %+v", pos)
	}
	if pos.Liquidity.String() != "123456789" {
		t.Fatalf("liquidity mismatch: %s", pos.Liquidity)
	}
	if pos.TokensOwed0.String() != "1500000000000000000" || pos.TokensOwed1.String() != "42" {
		t.Fatalf("owed mismatch: %s %s", pos.TokensOwed0, pos.TokensOwed1)
	}
}

func TestFetchPositionNotFound(t *testing.T) {
	manager := mustABI(t, PositionManagerABI)

	caller := dextest.NewCaller()
	caller.Fail(t, testManager, manager, "positions", errors.New("execution reverted: Invalid token ID"))
	if _, err := FetchPosition(context.Background(), caller, testManager, big.NewInt(1)); err == nil {
		t.Fatalf("expected revert to surface")
	}

	zero := big.NewInt(0)
	empty := dextest.NewCaller()
	empty.Reply(t, testManager, manager, "positions",
		zero, common.Address{}, common.Address{}, common.Address{},
		zero, zero, zero, zero, zero, zero, zero, zero,
	)
	_, err := FetchPosition(context.Background(), empty, testManager, big.NewInt(1))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFetchOwner(t *testing.T) {
	manager := mustABI(t, PositionManagerABI)
	caller := dextest.NewCaller()
	owner := common.HexToAddress("0x3333333333333333333333333333333333333333")
	caller.Reply(t, testManager, manager, "ownerOf", owner)

	got, err := FetchOwner(context.Background(), caller, testManager, big.NewInt(5))
	if err != nil {
		t.Fatalf("fetch owner: %v", err)
	}
	if got != owner {
		t.Fatalf("owner mismatch: %s", got.Hex())
	}
}

func TestFetchPoolAddress(t *testing.T) {
	manager := mustABI(t, PositionManagerABI)
	factory := mustABI(t, FactoryABI)
	caller := dextest.NewCaller()
	caller.Reply(t, testManager, manager, "factory", testFactory)
	caller.Reply(t, testFactory, factory, "getPool", testPool)

	got, err := FetchPoolAddress(context.Background(), caller, testManager, testToken0, testToken1, 2500)
	if err != nil {
		t.Fatalf("fetch pool: %v", err)
	}
	if got != testPool {
		t.Fatalf("pool mismatch: %s", got.Hex())
	}

	missing := dextest.NewCaller()
	missing.Reply(t, testManager, manager, "factory", testFactory)
	missing.Reply(t, testFactory, factory, "getPool", common.Address{})
	if _, err := FetchPoolAddress(context.Background(), missing, testManager, testToken0, testToken1, 2500); err == nil {
		t.Fatalf("expected error for zero pool address")
	}
}

func TestFetchSlot0(t *testing.T) {
	pool := mustABI(t, V3PoolABI)
	caller := dextest.NewCaller()
	sqrt, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	caller.Reply(t, testPool, pool, "slot0", sqrt, big.NewInt(-150))

	slot0, err := FetchSlot0(context.Background(), caller, testPool)
	if err != nil {
		t.Fatalf("fetch slot0: %v", err)
	}
	if slot0.Tick != -150 {
		t.Fatalf("tick mismatch: %d", slot0.Tick)
	}
	if slot0.SqrtPriceX96.Cmp(sqrt) != 0 {
		t.Fatalf("sqrt price mismatch: %s", slot0.SqrtPriceX96)
	}
}

func TestFetchSlot0IgnoresTrailingWords(t *testing.T) {
	pool := mustABI(t, V3PoolABI)
	data, err := pool.Methods["slot0"].Outputs.Pack(big.NewInt(1), big.NewInt(10))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	// observationIndex, cardinality, cardinalityNext, feeProtocol, unlocked
	data = append(data, make([]byte, 5*32)...)

	caller := dextest.NewCaller()
	caller.ReplyRaw(t, testPool, pool, "slot0", data)

	slot0, err := FetchSlot0(context.Background(), caller, testPool)
	if err != nil {
		t.Fatalf("fetch slot0: %v", err)
	}
	if slot0.Tick != 10 {
		t.Fatalf("tick mismatch: %d", slot0.Tick)
	}
}
