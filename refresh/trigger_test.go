package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRefresher counts refreshes.
type mockRefresher struct {
	count atomic.Int32
	err   error
}

func (m *mockRefresher) Refresh(ctx context.Context) error {
	m.count.Add(1)
	return m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewTrigger(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		schedules int
		wantErr   bool
	}{
		{
			name:      "every five minutes",
			spec:      "*/5 * * * *",
			schedules: 1,
		},
		{
			name:      "descriptor",
			spec:      "@every 30s",
			schedules: 1,
		},
		{
			name:      "multiple schedules",
			spec:      "0 8 * * 1-5; 0 12 * * 6,0",
			schedules: 2,
		},
		{
			name:      "trailing separator",
			spec:      "@hourly;",
			schedules: 1,
		},
		{
			name:    "empty",
			spec:    "",
			wantErr: true,
		},
		{
			name:    "only separators",
			spec:    " ; ;",
			wantErr: true,
		},
		{
			name:    "too few fields",
			spec:    "0 2 *",
			wantErr: true,
		},
		{
			name:    "seconds field not accepted",
			spec:    "0 0 2 * * *",
			wantErr: true,
		},
		{
			name:    "one bad expression",
			spec:    "@hourly;60 2 * * *",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, err := NewTrigger(tt.spec, &mockRefresher{}, testLogger())
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidCronSpec)
				assert.Nil(t, trigger)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.spec, trigger.Spec())
			assert.Len(t, trigger.schedules, tt.schedules)
		})
	}
}

func TestTrigger_NextRun(t *testing.T) {
	trigger, err := NewTrigger("0 2 * * *", &mockRefresher{}, testLogger())
	require.NoError(t, err)

	nextRun := trigger.NextRun()
	assert.True(t, nextRun.After(time.Now()), "next run should be in the future")
	assert.Equal(t, 2, nextRun.Hour())
	assert.Equal(t, 0, nextRun.Minute())
}

func TestTrigger_NextPicksEarliestSchedule(t *testing.T) {
	trigger, err := NewTrigger("30 9 * * *;15 9 * * *;0 10 * * *", &mockRefresher{}, testLogger())
	require.NoError(t, err)

	from := time.Date(2026, 3, 2, 9, 20, 0, 0, time.Local)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.Local), trigger.next(from))

	from = time.Date(2026, 3, 2, 10, 5, 0, 0, time.Local)
	assert.Equal(t, time.Date(2026, 3, 3, 9, 15, 0, 0, time.Local), trigger.next(from))
}

func TestTrigger_Start_Refreshes(t *testing.T) {
	refresher := &mockRefresher{err: errors.New("HTTP 503: Service Unavailable")}
	trigger, err := NewTrigger("@every 1s", refresher, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trigger.Start(ctx)

	assert.Eventually(t, func() bool {
		return refresher.count.Load() >= 2
	}, 5*time.Second, 20*time.Millisecond, "refresh errors do not stop the schedule")
}

func TestTrigger_Start_CancellationStopsLoop(t *testing.T) {
	refresher := &mockRefresher{}
	trigger, err := NewTrigger("* * * * *", refresher, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	trigger.Start(ctx)

	time.Sleep(10 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	// A minute boundary could fall inside the sleeps; allow at most one run.
	assert.LessOrEqual(t, refresher.count.Load(), int32(1))
}
