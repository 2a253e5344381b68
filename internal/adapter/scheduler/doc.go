// Package scheduler runs background jobs on cron schedules
// (github.com/robfig/cron/v3) or fixed intervals.
//
//	s := scheduler.New(ctx, scheduler.Config{Logger: log})
//	_, err := s.AddCronJob("@daily", scheduler.RefreshDataset(im, opener, source), scheduler.JobOptions{
//		Name:          "dataset-refresh",
//		Timeout:       2 * time.Hour,
//		OverlapPolicy: scheduler.SkipIfRunning,
//	})
//	s.AddTickerJob(time.Minute, scheduler.LogPoolStats(pool, log), scheduler.JobOptions{Name: "pool-stats"})
//	s.Start()
//	defer s.Stop()
//
// Job errors and panics are logged and reported through JobHooks; they never
// stop the scheduler. Cancelling the parent context stops every job.
package scheduler
