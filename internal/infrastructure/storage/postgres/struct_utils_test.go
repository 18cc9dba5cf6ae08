package postgres

import (
	"testing"
	"time"

	"medstock/internal/core/entity"
	"medstock/internal/core/id"

	"github.com/stretchr/testify/assert"
)

type MockCatalog struct {
	entity.Catalog
	Unit     string `db:"unit" json:"unit"`
	Internal string `db:"-" json:"-"`
	NoTag    string
}

func TestExtractDBColumns_EmbeddedFields(t *testing.T) {
	cols := ExtractDBColumns[MockCatalog]()

	expectedCols := []string{"id", "version", "code", "name", "is_active", "unit"}

	assert.Len(t, cols, len(expectedCols))
	for _, expected := range expectedCols {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
}

func TestExtractDBColumns_Document(t *testing.T) {
	type MockDocument struct {
		entity.BaseDocument
		Number string `db:"number" json:"number"`
	}

	cols := ExtractDBColumns[MockDocument]()

	for _, expected := range []string{"id", "version", "created_at", "updated_at", "created_by", "updated_by", "number"} {
		assert.Contains(t, cols, expected)
	}
}

func TestStructToMap_EmbeddedFields(t *testing.T) {
	cat := MockCatalog{
		Catalog: entity.Catalog{
			BaseEntity: entity.BaseEntity{
				ID:      id.New(),
				Version: 5,
			},
			Code:     "MED-0001",
			Name:     "Amoxicillin 500mg",
			IsActive: true,
		},
		Unit:     "tablet",
		Internal: "skipped",
		NoTag:    "skipped",
	}

	m := StructToMap(&cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "MED-0001", m["code"])
	assert.Equal(t, "Amoxicillin 500mg", m["name"])
	assert.Equal(t, true, m["is_active"])
	assert.Equal(t, "tablet", m["unit"])

	_, hasSkipped := m["-"]
	assert.False(t, hasSkipped)
	assert.Len(t, m, 6)
}

func TestStructToMap_Document(t *testing.T) {
	type MockDocument struct {
		entity.BaseDocument
		Number string `db:"number" json:"number"`
	}

	doc := MockDocument{
		BaseDocument: entity.NewBaseDocument(),
		Number:       "DSP-000042",
	}

	m := StructToMap(&doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, "DSP-000042", m["number"])
	assert.WithinDuration(t, time.Now().UTC(), m["created_at"].(time.Time), time.Minute)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap("not a struct"))
}
