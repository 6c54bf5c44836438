package types

import "time"

// Remote record field names.
const (
	FieldNameName     = "name"
	FieldNameCategory = "category"
	FieldNameLink     = "link"
	FieldNameDeadline = "deadline"
	FieldNamePrize    = "prize"
	FieldNameStatus   = "status"
)

// Record is the row shape held by a row store.
type Record struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	Link      string         `json:"link"`
	Deadline  string         `json:"deadline"`
	Prize     string         `json:"prize"`
	Status    string         `json:"status"`
	Archived  bool           `json:"archived"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewRecord returns a record with the defaults applied to inserted rows.
func NewRecord() Record {
	return Record{
		Category: string(DefaultCategory),
		Status:   string(DefaultStatus),
		Metadata: map[string]any{},
	}
}

// RecordPatch is a partial update. Nil fields are left untouched; a non-nil
// Metadata replaces the whole blob, so an empty map clears it. Metadata is
// always encoded so that an empty blob survives the wire as {} and an
// untouched one as null.
type RecordPatch struct {
	Name     *string        `json:"name,omitempty"`
	Category *string        `json:"category,omitempty"`
	Link     *string        `json:"link,omitempty"`
	Deadline *string        `json:"deadline,omitempty"`
	Prize    *string        `json:"prize,omitempty"`
	Status   *string        `json:"status,omitempty"`
	Archived *bool          `json:"archived,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Link == nil && p.Deadline == nil &&
		p.Prize == nil && p.Status == nil && p.Archived == nil && p.Metadata == nil
}

// Apply writes the patch onto rec.
func (p RecordPatch) Apply(rec *Record) {
	if p.Name != nil {
		rec.Name = *p.Name
	}
	if p.Category != nil {
		rec.Category = *p.Category
	}
	if p.Link != nil {
		rec.Link = *p.Link
	}
	if p.Deadline != nil {
		rec.Deadline = *p.Deadline
	}
	if p.Prize != nil {
		rec.Prize = *p.Prize
	}
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.Archived != nil {
		rec.Archived = *p.Archived
	}
	if p.Metadata != nil {
		rec.Metadata = p.Metadata
	}
}
