package main

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lo-maxwell/hkn-rails/core"
	testutil "github.com/lo-maxwell/hkn-rails/tests"
)

type fakeNotifier struct {
	calls int
	n     int
	err   error
}

func (f *fakeNotifier) NotifyDue(ctx context.Context, now time.Time) (int, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("no deadline")
	}
	return f.n, f.err
}

func Test_newReminderScheduler(t *testing.T) {
	conf := core.NewTestConfig()
	logger := new(testutil.Logger)

	c, err := newReminderScheduler(conf, new(fakeNotifier), logger)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	conf.Notifications.ReminderSpec = "every now and then"
	_, err = newReminderScheduler(conf, new(fakeNotifier), logger)
	assert.Error(t, err)
}

func Test_remindJob(t *testing.T) {
	conf := core.NewTestConfig()

	tests := []struct {
		name      string
		notifier  *fakeNotifier
		wantError bool
	}{
		{name: "sent", notifier: &fakeNotifier{n: 2}},
		{name: "nothing due", notifier: &fakeNotifier{}},
		{name: "failed", notifier: &fakeNotifier{err: errors.New("smtp down")}, wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := new(testutil.Logger)
			remindJob(conf, tt.notifier, logger)()
			assert.Equal(t, 1, tt.notifier.calls)
			assert.Equal(t, tt.wantError, len(logger.Entries("error")) > 0)
		})
	}
}
