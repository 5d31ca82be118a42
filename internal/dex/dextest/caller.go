// Package dextest provides an in-memory contract caller for tests.
package dextest

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type key struct {
	to       common.Address
	selector [4]byte
}

type reply struct {
	data []byte
	err  error
}

// Caller answers eth_call requests from canned replies keyed by contract
// address and method selector. Unknown calls return an error, like a revert.
type Caller struct {
	mu      sync.Mutex
	replies map[key]reply
	calls   map[key]int
}

// NewCaller returns an empty Caller.
func NewCaller() *Caller {
	return &Caller{
		replies: make(map[key]reply),
		calls:   make(map[key]int),
	}
}

// Reply registers the ABI-encoded outputs for method on contract to.
func (c *Caller) Reply(t testing.TB, to common.Address, parsed abi.ABI, method string, outputs ...interface{}) {
	t.Helper()
	m, ok := parsed.Methods[method]
	if !ok {
		t.Fatalf("method %s not in abi", method)
	}
	data, err := m.Outputs.Pack(outputs...)
	if err != nil {
		t.Fatalf("pack %s outputs: %v", method, err)
	}
	c.set(to, m.ID, reply{data: data})
}

// ReplyRaw registers raw return data for method on contract to.
func (c *Caller) ReplyRaw(t testing.TB, to common.Address, parsed abi.ABI, method string, data []byte) {
	t.Helper()
	m, ok := parsed.Methods[method]
	if !ok {
		t.Fatalf("method %s not in abi", method)
	}
	c.set(to, m.ID, reply{data: data})
}

// Fail makes method on contract to return err.
func (c *Caller) Fail(t testing.TB, to common.Address, parsed abi.ABI, method string, err error) {
	t.Helper()
	m, ok := parsed.Methods[method]
	if !ok {
		t.Fatalf("method %s not in abi", method)
	}
	c.set(to, m.ID, reply{err: err})
}

// Calls returns how many times method was called on contract to.
func (c *Caller) Calls(to common.Address, parsed abi.ABI, method string) int {
	m, ok := parsed.Methods[method]
	if !ok {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[newKey(to, m.ID)]
}

// CallContract implements the contract caller used by the dex package.
func (c *Caller) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("invalid call")
	}
	k := newKey(*msg.To, msg.Data[:4])

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[k]++
	r, ok := c.replies[k]
	if !ok {
		return nil, fmt.Errorf("execution reverted: %s %x", msg.To.Hex(), msg.Data[:4])
	}
	if r.err != nil {
		return nil, r.err
	}
	return append([]byte(nil), r.data...), nil
}

func (c *Caller) set(to common.Address, selector []byte, r reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies[newKey(to, selector)] = r
}

func newKey(to common.Address, selector []byte) key {
	k := key{to: to}
	copy(k.selector[:], selector)
	return k
}
