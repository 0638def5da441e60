package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestFakeAfterFuncFiresOnAdvance(t *testing.T) {
	clk := Fake(epoch)
	fired := 0
	clk.AfterFunc(600*time.Millisecond, func() { fired++ })

	clk.Advance(599 * time.Millisecond)
	assert.Equal(t, 0, fired)

	clk.Advance(time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, clk.Pending())
}

func TestFakeTimerStop(t *testing.T) {
	clk := Fake(epoch)
	fired := false
	timer := clk.AfterFunc(time.Second, func() { fired = true })

	require.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	clk.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestFakeCallbackSeesDeadlineTime(t *testing.T) {
	clk := Fake(epoch)
	var seen time.Time
	clk.AfterFunc(80*time.Millisecond, func() { seen = clk.Now() })

	clk.Advance(time.Second)
	assert.Equal(t, epoch.Add(80*time.Millisecond), seen)
	assert.Equal(t, epoch.Add(time.Second), clk.Now())
}

func TestFakeNestedTimersFireInSameAdvance(t *testing.T) {
	clk := Fake(epoch)
	var order []string
	clk.AfterFunc(80*time.Millisecond, func() {
		order = append(order, "outer")
		clk.AfterFunc(100*time.Millisecond, func() { order = append(order, "inner") })
	})

	clk.Advance(time.Second)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestFakeTicker(t *testing.T) {
	clk := Fake(epoch)
	ticker := clk.NewTicker(15 * time.Second)
	defer ticker.Stop()

	select {
	case <-ticker.C:
		t.Fatal("ticker fired before Advance")
	default:
	}

	clk.Advance(15 * time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire")
	}

	ticker.Stop()
	clk.Advance(time.Minute)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}
