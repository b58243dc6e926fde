// Package scheduler runs the gateway's background maintenance jobs on
// cron schedules.
//
//	s := scheduler.New()
//	_ = s.Add("session-count", "@every 1m", sessions.Refresh)
//	_ = s.Add("cert-expiry", "0 6 * * *", srv.CheckCertificates)
//	s.Start(ctx)
//	defer s.Stop()
//
// Every job also runs once when the scheduler starts. A failing job is
// logged and retried at its next scheduled time.
package scheduler
