package domain

// Subject is the tagged {kind, id} union identifying the entity an
// activity entry refers to.
type Subject struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

const (
	SubjectQuote    = "quote"
	SubjectOrder    = "order"
	SubjectCart     = "cart"
	SubjectDiscount = "discount"
	SubjectUser     = "user"
	SubjectEntry    = "price_entry"
)

type Activity struct {
	ID          int64  `db:"id" json:"id"`
	ActorID     *int64 `db:"actor_id" json:"actor_id,omitempty"`
	Action      string `db:"action" json:"action"`
	SubjectKind string `db:"subject_kind" json:"subject_kind,omitempty"`
	SubjectID   *int64 `db:"subject_id" json:"subject_id,omitempty"`
	Data        string `db:"data_snapshot" json:"data,omitempty"`
	IP          string `db:"ip" json:"ip,omitempty"`
	CreatedAt   string `db:"created_at" json:"created_at"`
}
