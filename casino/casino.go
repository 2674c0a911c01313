// Package casino is the hidden slot machine opened by typing "casino".
package casino

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	Code = "casino"

	StartBalance = 1000
	Bet          = 10
	// ResetBelow is the balance under which a top-up is offered.
	ResetBelow = 100

	SpinFrames    = 16
	FrameInterval = 100 * time.Millisecond

	DiamondWin = 500
	SevenWin   = 300
	TripleWin  = 100
	PairWin    = 20
)

var Symbols = []string{"🍒", "🍋", "💎", "7️⃣", "⭐", "🔔"}

var (
	ErrInsufficientFunds = errors.New("not enough coins")
	ErrSpinning          = errors.New("reels are already spinning")
)

// Sequence watches typed keys for Code.
type Sequence struct {
	keys []string
}

// Push records a key press and reports whether the last keys spell Code.
func (s *Sequence) Push(key string) bool {
	s.keys = append(s.keys, key)
	if n := len(s.keys); n > len(Code) {
		s.keys = s.keys[n-len(Code):]
	}
	return strings.Join(s.keys, "") == Code
}

type Machine struct {
	pick func(n int) int

	Balance  int
	Reels    [3]string
	Spinning bool
	Message  string
	frames   int
}

// New returns a machine drawing symbols with pick, which must return a
// value in [0,n). A nil pick uses math/rand.
func New(pick func(n int) int) *Machine {
	if pick == nil {
		pick = rand.IntN
	}
	return &Machine{
		pick:    pick,
		Balance: StartBalance,
		Reels:   [3]string{Symbols[0], Symbols[0], Symbols[0]},
		Message: "🎰 Welcome to the secret casino!",
	}
}

func (m *Machine) draw() [3]string {
	return [3]string{
		Symbols[m.pick(len(Symbols))],
		Symbols[m.pick(len(Symbols))],
		Symbols[m.pick(len(Symbols))],
	}
}

// Spin takes the bet and starts the reel animation. Call Frame every
// FrameInterval until it reports done.
func (m *Machine) Spin() error {
	if m.Spinning {
		return ErrSpinning
	}
	if m.Balance < Bet {
		m.Message = "❌ Not enough coins!"
		return ErrInsufficientFunds
	}
	m.Balance -= Bet
	m.Spinning = true
	m.frames = 0
	m.Message = "🎰 Spinning..."
	return nil
}

// Frame shows one animation frame. After SpinFrames frames it settles the
// spin and returns true.
func (m *Machine) Frame() bool {
	if !m.Spinning {
		return true
	}
	m.Reels = m.draw()
	m.frames++
	if m.frames >= SpinFrames {
		m.settle()
		return true
	}
	return false
}

func (m *Machine) settle() {
	m.Spinning = false
	m.Reels = m.draw()
	win := Payout(m.Reels)
	m.Balance += win
	switch {
	case win >= TripleWin:
		m.Message = fmt.Sprintf("🎉 JACKPOT! +%d coins!", win)
	case win > 0:
		m.Message = fmt.Sprintf("✨ Two of a kind! +%d coins", win)
	default:
		m.Message = "😢 Try again!"
	}
}

// Payout is the win for a final set of reels.
func Payout(r [3]string) int {
	if r[0] == r[1] && r[1] == r[2] {
		switch r[0] {
		case "💎":
			return DiamondWin
		case "7️⃣":
			return SevenWin
		default:
			return TripleWin
		}
	}
	if r[0] == r[1] || r[1] == r[2] {
		return PairWin
	}
	return 0
}

func (m *Machine) CanReset() bool { return m.Balance < ResetBelow }

func (m *Machine) Reset() {
	m.Balance = StartBalance
	m.Message = "💰 Balance topped up!"
}
