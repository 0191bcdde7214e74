package banner

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireHidden(t *testing.T, b *Banner) {
	t.Helper()
	require.Eventually(t, func() bool { return !b.State().Visible }, time.Second, time.Millisecond)
}

func TestBanner_SuccessDismissesAfterTwoSeconds(t *testing.T) {
	clk := clock.NewMock()
	b := New(clk, 0, 0)

	assert.Equal(t, State{Status: StatusHidden}, b.State())

	b.Success("Trial created successfully!")
	assert.Equal(t, State{Visible: true, Status: StatusSuccess, Message: "Trial created successfully!"}, b.State())

	clk.Add(1999 * time.Millisecond)
	assert.True(t, b.State().Visible)

	clk.Add(time.Millisecond)
	requireHidden(t, b)
	assert.Equal(t, State{Status: StatusHidden}, b.State())
}

func TestBanner_ErrorDismissesAfterThreeSeconds(t *testing.T) {
	clk := clock.NewMock()
	b := New(clk, 0, 0)

	b.Error("Contract test failed")
	clk.Add(2 * time.Second)
	assert.Equal(t, StatusError, b.State().Status)

	clk.Add(time.Second)
	requireHidden(t, b)
}

func TestBanner_PendingStaysUntilReplaced(t *testing.T) {
	clk := clock.NewMock()
	b := New(clk, 0, 0)

	b.Pending("Waiting for transaction confirmation...")
	clk.Add(time.Minute)
	assert.Equal(t, State{Visible: true, Status: StatusPending, Message: "Waiting for transaction confirmation..."}, b.State())

	b.Success("Trial created successfully!")
	assert.Equal(t, StatusSuccess, b.State().Status)
}

func TestBanner_EarlierTimerHidesNewerMessage(t *testing.T) {
	clk := clock.NewMock()
	b := New(clk, 0, 0)

	b.Success("Contract is available and working!")
	clk.Add(time.Second)
	b.Pending("Verifying decryption on-chain...")

	clk.Add(time.Second)
	requireHidden(t, b)
}

func TestBanner_CustomDelays(t *testing.T) {
	clk := clock.NewMock()
	b := New(clk, 10*time.Millisecond, 20*time.Millisecond)

	b.Error("Failed to load data")
	clk.Add(20 * time.Millisecond)
	requireHidden(t, b)
}
