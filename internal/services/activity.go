package services

import (
	"encoding/json"
	"log"

	"gravado/internal/domain"
	"gravado/internal/repos"
)

// ActivityRecorder writes the audit ledger. Recording is best-effort:
// a failure is logged and never aborts the primary operation.
type ActivityRecorder struct {
	Repo *repos.ActivityRepo
}

func NewActivityRecorder(repo *repos.ActivityRepo) *ActivityRecorder {
	return &ActivityRecorder{Repo: repo}
}

func (a *ActivityRecorder) Record(action string, actorID *int64, subject *domain.Subject, data map[string]any, ip string) {
	if a == nil || a.Repo == nil {
		return
	}
	entry := domain.Activity{ActorID: actorID, Action: action, IP: ip}
	if subject != nil {
		entry.SubjectKind = subject.Kind
		id := subject.ID
		entry.SubjectID = &id
	}
	if len(data) > 0 {
		if b, err := json.Marshal(data); err == nil {
			entry.Data = string(b)
		}
	}
	if err := a.Repo.Insert(entry); err != nil {
		log.Printf("[activity] record %q failed: %v", action, err)
	}
}
