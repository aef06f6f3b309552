package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/lo-maxwell/hkn-rails/core"
)

type dueNotifier interface {
	NotifyDue(ctx context.Context, now time.Time) (int, error)
}

// newReminderScheduler returns a stopped cron scheduler sending RSVP reminders on conf.Notifications.ReminderSpec.
func newReminderScheduler(conf *core.Config, events dueNotifier, logger core.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(conf.Location()))
	if _, err := c.AddFunc(conf.Notifications.ReminderSpec, remindJob(conf, events, logger)); err != nil {
		return nil, errors.Wrapf(err, "scheduling reminders %q", conf.Notifications.ReminderSpec)
	}
	return c, nil
}

func remindJob(conf *core.Config, events dueNotifier, logger core.Logger) func() {
	return func() {
		// a run must not overlap the next tick
		ctx, cancel := context.WithTimeout(context.Background(), conf.Notifications.ReminderLead)
		defer cancel()

		n, err := events.NotifyDue(ctx, time.Now())
		if err != nil {
			logger.Error(fmt.Sprintf("sending reminders: %v", err), err)
		}
		if n > 0 {
			logger.Info(fmt.Sprintf("reminders sent for %d event(s)", n))
		}
	}
}
