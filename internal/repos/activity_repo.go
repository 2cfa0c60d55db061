package repos

import (
	"gravado/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ActivityRepo struct{ db *sqlx.DB }

func NewActivityRepo(db *sqlx.DB) *ActivityRepo { return &ActivityRepo{db: db} }

func (r *ActivityRepo) Insert(a domain.Activity) error {
	_, err := r.db.Exec(`
	  INSERT INTO activities(actor_id, action, subject_kind, subject_id, data_snapshot, ip)
	  VALUES(?,?,?,?,?,?)
	`, a.ActorID, a.Action, a.SubjectKind, a.SubjectID, a.Data, a.IP)
	return err
}

func (r *ActivityRepo) ListLatest(limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.Activity
	err := r.db.Select(&out, `
	  SELECT id, actor_id, action, subject_kind, subject_id, data_snapshot, ip, created_at
	  FROM activities ORDER BY id DESC LIMIT ?
	`, limit)
	return out, err
}
