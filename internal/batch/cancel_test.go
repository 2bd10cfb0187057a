package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanceller_StartsAtNone(t *testing.T) {
	c := NewCanceller()
	assert.Equal(t, CancelNone, c.Level())
}

func TestCanceller_RaiseEscalatesThroughLevels(t *testing.T) {
	c := NewCanceller()
	assert.Equal(t, CancelRequested, c.Raise())
	assert.Equal(t, CancelForceful, c.Raise())
	assert.Equal(t, CancelForceful, c.Raise(), "further raises stay capped at forceful")
}

func TestCanceller_RequestedClosesOnFirstRaise(t *testing.T) {
	c := NewCanceller()
	select {
	case <-c.Requested():
		t.Fatal("requested channel closed before any Raise")
	default:
	}

	c.Raise()
	select {
	case <-c.Requested():
	case <-time.After(time.Second):
		t.Fatal("requested channel not closed after Raise")
	}
}

func TestCanceller_RaiseConcurrentSafe(t *testing.T) {
	c := NewCanceller()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			c.Raise()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.Equal(t, CancelForceful, c.Level())
}
