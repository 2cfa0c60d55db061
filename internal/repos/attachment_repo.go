package repos

import (
	"gravado/internal/domain"

	"github.com/jmoiron/sqlx"
)

type AttachmentRepo struct{ db *sqlx.DB }

func NewAttachmentRepo(db *sqlx.DB) *AttachmentRepo { return &AttachmentRepo{db: db} }

func (r *AttachmentRepo) Create(userID int64, fileName, path string) (int64, error) {
	res, err := r.db.Exec(`
	  INSERT INTO attachments(user_id, file_name, path) VALUES(?,?,?)
	`, userID, fileName, path)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LinkPendingToQuote claims still-unlinked attachments owned by the
// actor and binds them to the quote. Ids belonging to other users or
// already linked are silently skipped.
func (r *AttachmentRepo) LinkPendingToQuote(fileIDs []int64, quoteID, ownerID int64) error {
	if len(fileIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`
	  UPDATE attachments SET quote_id=?
	  WHERE id IN (?) AND user_id=? AND quote_id IS NULL
	`, quoteID, fileIDs, ownerID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(query, args...)
	return err
}

func (r *AttachmentRepo) ByQuote(quoteID int64) ([]domain.Attachment, error) {
	var out []domain.Attachment
	err := r.db.Select(&out, `
	  SELECT id, user_id, quote_id, file_name, path, created_at
	  FROM attachments WHERE quote_id=? ORDER BY id
	`, quoteID)
	return out, err
}
