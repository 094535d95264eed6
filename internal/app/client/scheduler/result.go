package scheduler

import (
	"time"

	"stockkeeper/internal/domain/queue"
)

type Status string

const (
	StatusCompleted         Status = "completed"
	StatusAlreadyInProgress Status = "already_in_progress"
)

// ItemError - ошибка одного шага или одного элемента очереди. Не прерывает цикл.
type ItemError struct {
	Op         string           `json:"op"`
	QueueID    int64            `json:"queue_id,omitempty"`
	EntityType queue.EntityType `json:"entity_type,omitempty"`
	EntityID   string           `json:"entity_id,omitempty"`
	Error      string           `json:"error"`
}

type Result struct {
	Status    Status        `json:"status"`
	Retried   int64         `json:"retried"`
	Enqueued  int           `json:"enqueued"`
	Pushed    int           `json:"pushed"`
	Failed    int           `json:"failed"`
	Purged    int64         `json:"purged"`
	Pulled    int           `json:"pulled"`
	Stale     int           `json:"stale"`
	KeptLocal int           `json:"kept_local"`
	Invalid   int           `json:"invalid"`
	Errors    []ItemError   `json:"errors,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

func (r *Result) addError(e ItemError) {
	r.Errors = append(r.Errors, e)
}

// OK - цикл прошел без единой ошибки.
func (r Result) OK() bool {
	return r.Status == StatusCompleted && len(r.Errors) == 0
}

// Stats - накопительная статистика с момента запуска или ResetStats.
type Stats struct {
	Runs           int           `json:"runs"`
	Skipped        int           `json:"skipped"`
	Pushed         int           `json:"pushed"`
	Failed         int           `json:"failed"`
	Pulled         int           `json:"pulled"`
	Errors         int           `json:"errors"`
	LastRun        time.Time     `json:"last_run"`
	LastSuccessful time.Time     `json:"last_successful"`
	AvgDuration    time.Duration `json:"avg_duration"`
}

func (s *Stats) record(r Result) {
	if r.Status == StatusAlreadyInProgress {
		s.Skipped++
		return
	}

	s.Runs++
	s.Pushed += r.Pushed
	s.Failed += r.Failed
	s.Pulled += r.Pulled
	s.Errors += len(r.Errors)
	s.LastRun = r.StartedAt
	if r.OK() {
		s.LastSuccessful = r.StartedAt
	}

	s.AvgDuration = (s.AvgDuration*time.Duration(s.Runs-1) + r.Duration) / time.Duration(s.Runs)
}
