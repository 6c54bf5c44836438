package types

// FieldKind discriminates where a column's value is persisted.
type FieldKind int

// Field kinds.
const (
	FieldMetadata FieldKind = iota // key inside the record's metadata blob
	FieldCore                      // named field of the record
	FieldDerived                   // computed locally, never persisted
)

// Field is the resolved persistence target of a column.
type Field struct {
	Kind FieldKind
	Name string // record field name for FieldCore, metadata key for FieldMetadata
}

// coreFields maps core column IDs to record field names.
var coreFields = map[string]string{
	ColName:     FieldNameName,
	ColCategory: FieldNameCategory,
	ColLink:     FieldNameLink,
	ColDeadline: FieldNameDeadline,
	ColPrize:    FieldNamePrize,
	ColStatus:   FieldNameStatus,
}

// FieldFor resolves the persistence target of a column ID.
func FieldFor(colID string) Field {
	if colID == ColConverted {
		return Field{Kind: FieldDerived, Name: colID}
	}
	if name, ok := coreFields[colID]; ok {
		return Field{Kind: FieldCore, Name: name}
	}
	return Field{Kind: FieldMetadata, Name: colID}
}

// IsCoreColumn reports whether colID is stored outside the metadata blob.
func IsCoreColumn(colID string) bool {
	return FieldFor(colID).Kind != FieldMetadata
}

// IsReservedColumnID reports whether colID collides with the id or archived
// key of a row's flat JSON form. Such ids cannot name a column.
func IsReservedColumnID(colID string) bool {
	return colID == "id" || colID == "archived"
}

// Patch returns the record patch that stores value in a core field. It
// returns an empty patch for other kinds.
func (f Field) Patch(value string) RecordPatch {
	if f.Kind != FieldCore {
		return RecordPatch{}
	}
	v := value
	var p RecordPatch
	switch f.Name {
	case FieldNameName:
		p.Name = &v
	case FieldNameCategory:
		p.Category = &v
	case FieldNameLink:
		p.Link = &v
	case FieldNameDeadline:
		p.Deadline = &v
	case FieldNamePrize:
		p.Prize = &v
	case FieldNameStatus:
		p.Status = &v
	}
	return p
}

// RowFromRecord maps a record onto a row. Core fields fill their column IDs
// and metadata entries fill theirs; the derived column is left for the caller.
func RowFromRecord(rec Record) Row {
	row := Row{ID: rec.ID, Archived: rec.Archived, Values: make(map[string]string, len(rec.Metadata)+6)}
	row.Values[ColName] = rec.Name
	row.Values[ColCategory] = rec.Category
	row.Values[ColLink] = rec.Link
	row.Values[ColDeadline] = rec.Deadline
	row.Values[ColPrize] = rec.Prize
	row.Values[ColStatus] = rec.Status
	for k, v := range rec.Metadata {
		if IsCoreColumn(k) || IsReservedColumnID(k) {
			continue
		}
		row.Values[k] = Stringify(v)
	}
	return row
}

// MetadataFromValues collects every non-core value of a row into a metadata
// blob.
func MetadataFromValues(values map[string]string) map[string]any {
	meta := make(map[string]any)
	for k, v := range values {
		if IsCoreColumn(k) {
			continue
		}
		meta[k] = v
	}
	return meta
}
