// Package planner runs periodic background jobs for the bot.
//
// A Planner owns a single robfig/cron tick. On every tick it asks each Job
// whether it is due (ShouldRun) and runs the due ones synchronously, one after
// another. Job failures and panics are contained per job.
package planner
