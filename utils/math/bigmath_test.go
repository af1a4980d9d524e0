package math

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyBps(t *testing.T) {
	assert.Equal(t, big.NewInt(50), ApplyBps(big.NewInt(10000), 50))
	assert.Equal(t, big.NewInt(0), ApplyBps(nil, 50))
	assert.Equal(t, big.NewInt(0), ApplyBps(big.NewInt(1), 50), "sub-unit results truncate to zero")
}

func TestAddBps(t *testing.T) {
	// 10% gas buffer
	assert.Equal(t, big.NewInt(11000), AddBps(big.NewInt(10000), 1000))
}

func TestSubBps(t *testing.T) {
	// 0.5% slippage floor
	assert.Equal(t, big.NewInt(9950), SubBps(big.NewInt(10000), 50))
}

func TestClone(t *testing.T) {
	x := big.NewInt(42)
	y := Clone(x)
	y.SetInt64(0)
	assert.Equal(t, int64(42), x.Int64())
	assert.Equal(t, big.NewInt(0), Clone(nil))
}

func TestMax(t *testing.T) {
	a, b := big.NewInt(1), big.NewInt(2)
	assert.Equal(t, b, Max(a, b))
	assert.Equal(t, b, Max(b, a))
	assert.Equal(t, a, Max(a, a))
}
