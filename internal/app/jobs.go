package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// auditRetention is how long mutation audit rows are kept before the
// daily prune job removes them.
const auditRetention = time.Hour * 24 * 365

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	var err error
	_, err = a.sched.AddFunc("@every 10m", func() {
		if err := a.service.SweepOrphans(context.Background()); err != nil {
			zap.S().Errorf("orphan sweep error %s", err.Error())
		}
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", func() {
		if err := a.service.PruneAudit(context.Background(), auditRetention); err != nil {
			zap.S().Errorf("audit prune error %s", err.Error())
		}
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}
