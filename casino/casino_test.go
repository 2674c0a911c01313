package casino

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// script returns a pick func yielding idx in order, then repeating the last.
func script(idx ...int) func(int) int {
	i := 0
	return func(int) int {
		v := idx[min(i, len(idx)-1)]
		i++
		return v
	}
}

// cycle returns a pick func repeating idx forever.
func cycle(idx ...int) func(int) int {
	i := 0
	return func(int) int {
		v := idx[i%len(idx)]
		i++
		return v
	}
}

func index(sym string) int {
	for i, s := range Symbols {
		if s == sym {
			return i
		}
	}
	panic(sym)
}

func spinTo(t *testing.T, m *Machine) {
	t.Helper()
	require.NoError(t, m.Spin())
	for i := 1; i < SpinFrames; i++ {
		require.False(t, m.Frame(), "frame %d", i)
	}
	require.True(t, m.Frame())
}

func TestSequence(t *testing.T) {
	var s Sequence
	for _, k := range []string{"x", "c", "a", "s", "i", "n"} {
		assert.False(t, s.Push(k))
	}
	assert.True(t, s.Push("o"))
	assert.False(t, s.Push("o"))
}

func TestSequenceNeedsContiguousKeys(t *testing.T) {
	var s Sequence
	for _, k := range []string{"c", "a", "s", "x", "i", "n", "o"} {
		assert.False(t, s.Push(k))
	}
}

func TestPayout(t *testing.T) {
	cases := []struct {
		reels [3]string
		want  int
	}{
		{[3]string{"💎", "💎", "💎"}, DiamondWin},
		{[3]string{"7️⃣", "7️⃣", "7️⃣"}, SevenWin},
		{[3]string{"🍒", "🍒", "🍒"}, TripleWin},
		{[3]string{"🔔", "🔔", "⭐"}, PairWin},
		{[3]string{"⭐", "🔔", "🔔"}, PairWin},
		{[3]string{"🔔", "⭐", "🔔"}, 0},
		{[3]string{"🍒", "🍋", "💎"}, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Payout(c.reels), "%v", c.reels)
	}
}

func TestSpinLoses(t *testing.T) {
	m := New(cycle(0, 1, 2))
	spinTo(t, m)
	assert.Equal(t, StartBalance-Bet, m.Balance)
	assert.False(t, m.Spinning)
	assert.Equal(t, "😢 Try again!", m.Message)
}

func TestSpinDiamondJackpot(t *testing.T) {
	m := New(script(index("💎")))
	spinTo(t, m)
	assert.Equal(t, StartBalance-Bet+DiamondWin, m.Balance)
	assert.Equal(t, [3]string{"💎", "💎", "💎"}, m.Reels)
	assert.Contains(t, m.Message, "+500")
}

func TestSpinWhileSpinning(t *testing.T) {
	m := New(script(0))
	require.NoError(t, m.Spin())
	assert.ErrorIs(t, m.Spin(), ErrSpinning)
	assert.Equal(t, StartBalance-Bet, m.Balance)
}

func TestInsufficientFunds(t *testing.T) {
	m := New(script(0, 1, 2))
	m.Balance = Bet - 1
	assert.ErrorIs(t, m.Spin(), ErrInsufficientFunds)
	assert.Equal(t, Bet-1, m.Balance)
	assert.False(t, m.Spinning)
	assert.True(t, m.CanReset())

	m.Reset()
	assert.Equal(t, StartBalance, m.Balance)
	assert.False(t, m.CanReset())
}

func TestFrameWhenIdle(t *testing.T) {
	m := New(nil)
	before := m.Reels
	assert.True(t, m.Frame())
	assert.Equal(t, before, m.Reels)
}
