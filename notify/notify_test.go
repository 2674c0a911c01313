package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failing struct{ err error }

func (f failing) Notify(Notification) error { return f.err }

func TestFunc(t *testing.T) {
	var got Notification
	err := Func(func(n Notification) { got = n }).Notify(Notification{Kind: Success, Title: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Title)
	assert.Equal(t, Success, got.Kind)
}

func TestMultiDeliversToAll(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	count := 0
	m := Multi{
		Func(func(Notification) { count++ }),
		failing{errA},
		nil,
		Func(func(Notification) { count++ }),
		failing{errB},
	}

	err := m.Notify(Notification{Kind: Failure})
	assert.Equal(t, 2, count)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestMultiEmpty(t *testing.T) {
	assert.NoError(t, Multi(nil).Notify(Notification{}))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "info", Info.String())
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "failure", Failure.String())
}
