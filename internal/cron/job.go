package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/pollbot/internal/schedule"
)

// Phase tells whether a job opens or closes a poll.
type Phase string

const (
	PhaseStart Phase = "start"
	PhaseEnd   Phase = "end"
)

// CorrelationKey ties a job to the schedule it was built from.
type CorrelationKey struct {
	ChatID     int64
	ScheduleID string
	Phase      Phase
}

func (k CorrelationKey) String() string {
	return fmt.Sprintf("%d/%s/%s", k.ChatID, k.ScheduleID, k.Phase)
}

// Job is a weekly trigger: Callback runs once in the minute matching
// Weekday and Time in Location.
type Job struct {
	Key      CorrelationKey
	Weekday  schedule.Weekday
	Time     schedule.TimeOfDay
	Location *time.Location
	Callback func(ctx context.Context)
}

// JobInfo describes a registered job.
type JobInfo struct {
	ID   string    `json:"id"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
}

// Trigger receives the firings produced by RebuildAll.
type Trigger interface {
	OpenPoll(ctx context.Context, s schedule.Schedule)
	ClosePoll(ctx context.Context, s schedule.Schedule)
}

// FiringObserver is notified of every fired job.
type FiringObserver interface {
	JobFired(phase string)
	JobsRegistered(n int)
}

func spec(job Job) string {
	loc := job.Location
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("CRON_TZ=%s %d %d * * %d", loc.String(), job.Time.Minute, job.Time.Hour, int(job.Weekday.Std()))
}
