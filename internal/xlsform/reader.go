package xlsform

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/fieldmap-service/internal/domain"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const surveySheet = "survey"

var lastSavedRe = regexp.MustCompile(`^\$\{last-saved#([^}]+)\}$`)

// Reader читает типы полей из XLSForm
type Reader struct {
	logger *zap.Logger
}

func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger}
}

// ReadFile читает схему формы. Отсутствующий файл даёт пустую схему.
func (r *Reader) ReadFile(path string) (*domain.FormSchema, error) {
	if path == "" {
		r.logger.Warn("No XLSForm configured, fields are untyped")
		return domain.NewFormSchema(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("XLSForm not found, fields are untyped", zap.String("path", path))
			return domain.NewFormSchema(), nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInput, err, "failed to open XLSForm %s", path)
	}
	defer file.Close()

	schema, err := r.Read(file)
	if err != nil {
		return nil, err
	}

	r.logger.Info("XLSForm loaded",
		zap.String("path", path),
		zap.Int("fields", len(schema.Types)),
		zap.Int("sticky", len(schema.Sticky)),
	)
	return schema, nil
}

// Read разбирает книгу из потока
func (r *Reader) Read(src io.Reader) (*domain.FormSchema, error) {
	book, err := excelize.OpenReader(src)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInput, err, "not a readable spreadsheet")
	}
	defer book.Close()

	sheet := findSheet(book.GetSheetList(), surveySheet)
	if sheet == "" {
		return nil, apperrors.Newf(apperrors.ErrSchema, "workbook has no %q sheet", surveySheet)
	}

	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSchema, err, "failed to read %q sheet", sheet)
	}

	return parseSurvey(rows)
}

func findSheet(sheets []string, name string) string {
	for _, s := range sheets {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return s
		}
	}
	return ""
}

// parseSurvey ищет строку заголовка и собирает схему
func parseSurvey(rows [][]string) (*domain.FormSchema, error) {
	header := -1
	typeCol, nameCol, defaultCol := -1, -1, -1
	for i, row := range rows {
		typeCol, nameCol, defaultCol = -1, -1, -1
		for j, cell := range row {
			switch strings.ToLower(strings.TrimSpace(cell)) {
			case "type":
				typeCol = j
			case "name":
				nameCol = j
			case "default":
				defaultCol = j
			}
		}
		if typeCol >= 0 && nameCol >= 0 {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, apperrors.Newf(apperrors.ErrSchema, "survey sheet has no type/name header")
	}

	schema := domain.NewFormSchema()
	for _, row := range rows[header+1:] {
		name := strings.ToLower(cell(row, nameCol))
		if name == "" {
			continue
		}
		if fields := strings.Fields(cell(row, typeCol)); len(fields) > 0 {
			schema.Types[name] = strings.ToLower(fields[0])
		}

		def := cell(row, defaultCol)
		if def == "" {
			continue
		}
		if m := lastSavedRe.FindStringSubmatch(def); m != nil {
			schema.Sticky[strings.ToLower(strings.TrimSpace(m[1]))] = struct{}{}
			continue
		}
		schema.Defaults[name] = def
	}
	return schema, nil
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
