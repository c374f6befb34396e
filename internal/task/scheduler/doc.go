// Package scheduler arms one-shot reminder triggers on top of robfig/cron.
//
// A trigger is registered as a five-field calendar pattern
// ("minute hour day-of-month month *") in the configured location. The
// schedule is wrapped so it only yields instants in the target year, and the
// fire path re-checks the full date before running the job. Each trigger
// runs at most once and removes itself afterwards, whatever the job returned.
package scheduler
