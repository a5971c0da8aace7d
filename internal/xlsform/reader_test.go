package xlsform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()

	book := excelize.NewFile()
	defer book.Close()
	require.NoError(t, book.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, book.SetSheetRow(sheet, ref, &r))
	}

	path := filepath.Join(t.TempDir(), "form.xlsx")
	require.NoError(t, book.SaveAs(path))
	return path
}

func TestReadFile_Survey(t *testing.T) {
	path := writeWorkbook(t, "survey", [][]interface{}{
		{"Type", "Name", "Label", "Default"},
		{"start", "start", "", ""},
		{"select_multiple features", "features", "Features", ""},
		{"select_one yes_no", "toilets", "Toilets", "no"},
		{"text", "surveyor", "Name", "${last-saved#surveyor}"},
		{"geopoint", "location", "Where", ""},
		{"", "", "", ""},
	})

	schema, err := NewReader(zap.NewNop()).ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, domain.FieldTypeSelectMultiple, schema.TypeOf("features"))
	assert.Equal(t, "select_one", schema.TypeOf("toilets"))
	assert.Equal(t, "geopoint", schema.TypeOf("location"))
	assert.True(t, schema.IsSticky("surveyor"))
	def, ok := schema.Default("toilets")
	assert.True(t, ok)
	assert.Equal(t, "no", def)
	_, ok = schema.Default("surveyor")
	assert.False(t, ok)
}

func TestReadFile_MissingIsEmptySchema(t *testing.T) {
	r := NewReader(zap.NewNop())

	schema, err := r.ReadFile(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.NoError(t, err)
	assert.True(t, schema.Empty())

	schema, err = r.ReadFile("")
	require.NoError(t, err)
	assert.True(t, schema.Empty())
}

func TestReadFile_NotAWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("type,name\ntext,foo\n"), 0o644))

	_, err := NewReader(zap.NewNop()).ReadFile(path)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInput, apperrors.CodeOf(err))
}

func TestReadFile_SchemaErrors(t *testing.T) {
	t.Run("no survey sheet", func(t *testing.T) {
		path := writeWorkbook(t, "choices", [][]interface{}{{"list_name", "name"}})
		_, err := NewReader(zap.NewNop()).ReadFile(path)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeSchema, apperrors.CodeOf(err))
		assert.False(t, apperrors.IsFatal(err))
	})

	t.Run("no header", func(t *testing.T) {
		path := writeWorkbook(t, "survey", [][]interface{}{{"label", "hint"}})
		_, err := NewReader(zap.NewNop()).ReadFile(path)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeSchema, apperrors.CodeOf(err))
	})
}
