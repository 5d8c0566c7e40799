package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStates = []State{StateDetected, StateBuying, StateTracking, StateSelling, StateSold, StateFailed}

func TestCanTransition_Graph(t *testing.T) {
	edges := map[[2]State]bool{
		{StateDetected, StateBuying}:  true,
		{StateBuying, StateTracking}:  true,
		{StateBuying, StateFailed}:    true,
		{StateTracking, StateSelling}: true,
		{StateSelling, StateSold}:     true,
		{StateSelling, StateTracking}: true,
		{StateSelling, StateFailed}:   true,
	}

	for _, from := range allStates {
		for _, to := range allStates {
			want := edges[[2]State{from, to}]
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range allStates {
		if !s.Terminal() {
			continue
		}
		for _, to := range allStates {
			assert.False(t, s.CanTransition(to), "%s -> %s", s, to)
		}
	}
	assert.True(t, StateSold.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateSelling.Terminal())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "tracking", StateTracking.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestTokenBalance(t *testing.T) {
	u := Unknown()
	_, ok := u.Get()
	assert.False(t, ok)
	assert.Equal(t, "unknown", u.String())

	z := Known(0)
	n, ok := z.Get()
	assert.True(t, ok)
	assert.Zero(t, n)
	assert.Equal(t, "0", z.String())
	assert.NotEqual(t, u, z)

	assert.Equal(t, "32258064516", Known(32_258_064_516).String())
}
