package watch

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// newScheduler returns a scheduler firing fn every interval, or nil when
// interval is zero.
func newScheduler(interval time.Duration, fn func()) (gocron.Scheduler, error) {
	if interval <= 0 {
		return nil, nil
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "create scheduler").Build()
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName("interval-run"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, errors.WrapError(err, errors.CategoryInternal, "schedule interval runs").
			WithContext("interval", interval.String()).
			Build()
	}
	slog.Info("Scheduled interval runs", slog.Duration("interval", interval))
	return s, nil
}
