package calculator

import (
	"context"
	"time"

	"rfm-segments/pkg/models"

	"github.com/sirupsen/logrus"
)

// retry runs fn under the per-attempt timeout. A transient failure is retried exactly once
// after the backoff; any remaining failure becomes an infrastructure failure.
func retry[T any](ctx context.Context, e *Engine, cfg models.Config, log logrus.FieldLogger, op string, table models.Table, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		var out T
		actx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
		out, err = fn(actx)
		cancel()
		if err == nil {
			return out, nil
		}
		if attempt == 2 || ctx.Err() != nil || !e.transient(err) {
			break
		}

		log.WithFields(logrus.Fields{
			"op":      op,
			"table":   table,
			"backoff": cfg.RetryBackoff.String(),
		}).WithError(err).Warn("transient failure, retrying once")

		timer := time.NewTimer(cfg.RetryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
			return zero, &models.Failure{Kind: models.KindInfra, Op: op, Table: table, Err: err}
		case <-timer.C:
		}
	}
	return zero, &models.Failure{Kind: models.KindInfra, Op: op, Table: table, Err: err}
}
