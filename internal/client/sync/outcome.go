package sync

import (
	"time"

	"github.com/iudanet/repsync/internal/models"
)

// OutcomeKind классифицирует результат отправки одной мутации
type OutcomeKind string

const (
	OutcomeApplied  OutcomeKind = "applied"  // сервер принял запись
	OutcomeConflict OutcomeKind = "conflict" // конфликт версий, см. Conflict
	OutcomeRejected OutcomeKind = "rejected" // запись отклонена, мутация удалена
	OutcomeRetrying OutcomeKind = "retrying" // временная ошибка, ждет NextRetryAt
	OutcomeFailed   OutcomeKind = "failed"   // исчерпан лимит повторов
)

// Outcome is delivered to OnOutcome listeners after a mutation was sent
// and the queue and cache were updated.
type Outcome struct {
	NextRetryAt time.Time
	Entity      *models.Entity         // оптимистичное представление после обработки, nil если удалена
	Conflict    *models.ConflictRecord // заполнен для OutcomeConflict
	Err         error                  // причина для rejected, retrying и failed
	MutationID  string
	EntityKey   models.EntityKey
	Kind        OutcomeKind
}

// Terminal reports whether the caller has to act on the outcome: the
// mutation was dropped by the server, ran out of retries, or produced a
// conflict that needs a decision.
func (o *Outcome) Terminal() bool {
	switch o.Kind {
	case OutcomeRejected, OutcomeFailed:
		return true
	case OutcomeConflict:
		return o.Conflict != nil && !o.Conflict.Resolved()
	}
	return false
}

// DrainStats summarizes one Drain call
type DrainStats struct {
	Sent      int `json:"sent"`
	Applied   int `json:"applied"`
	Conflicts int `json:"conflicts"`
	Rejected  int `json:"rejected"`
	Retrying  int `json:"retrying"`
	Failed    int `json:"failed"`
}

func (s *DrainStats) add(o *Outcome) {
	s.Sent++
	switch o.Kind {
	case OutcomeApplied:
		s.Applied++
	case OutcomeConflict:
		s.Conflicts++
	case OutcomeRejected:
		s.Rejected++
	case OutcomeRetrying:
		s.Retrying++
	case OutcomeFailed:
		s.Failed++
	}
}
