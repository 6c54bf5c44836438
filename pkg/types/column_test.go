package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColumnType(t *testing.T) {
	tests := []struct {
		in   string
		want ColumnType
	}{
		{"text", ColumnText},
		{"link", ColumnLink},
		{"date", ColumnDate},
		{"status", ColumnStatus},
		{"category", ColumnCategory},
		{"  Date ", ColumnDate},
		{"", ColumnText},
		{"currency", ColumnText},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseColumnType(tt.in))
		})
	}
}

func TestColumnUnmarshalCoercesUnknownType(t *testing.T) {
	var cols []Column
	err := json.Unmarshal([]byte(`[{"id":"a","title":"A","type":"rating"},{"id":"b","title":"B","type":"date"}]`), &cols)
	require.NoError(t, err)
	assert.Equal(t, ColumnText, cols[0].Type)
	assert.Equal(t, ColumnDate, cols[1].Type)
}

func TestColumnMonetary(t *testing.T) {
	tests := []struct {
		name string
		col  Column
		want bool
	}{
		{"prize id", Column{ID: ColPrize, Title: "Reward"}, true},
		{"converted id", Column{ID: ColConverted, Title: "IDR"}, true},
		{"prize title", Column{ID: "col_x", Title: " Prize "}, true},
		{"converted title", Column{ID: "col_y", Title: "Converted (IDR)"}, true},
		{"plain text", Column{ID: ColName, Title: "Project Name"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.col.Monetary())
		})
	}
}

func TestDefaultColumnsCoverCoreFields(t *testing.T) {
	cols := DefaultColumns()
	ids := make([]string, len(cols))
	for i, c := range cols {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{ColName, ColCategory, ColLink, ColDeadline, ColPrize, ColConverted, ColStatus}, ids)

	col, ok := FindColumn(cols, ColStatus)
	require.True(t, ok)
	assert.Equal(t, ColumnStatus, col.Type)

	_, ok = FindColumn(cols, "missing")
	assert.False(t, ok)
}
