package usecase

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fieldmap-service/internal/assembler"
	"github.com/fieldmap-service/internal/domain"
	"github.com/fieldmap-service/internal/domain/repository"
	"github.com/fieldmap-service/internal/geojson"
	"github.com/fieldmap-service/internal/osmxml"
	"github.com/fieldmap-service/internal/parser"
	"github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/usecase/dto"
	"github.com/fieldmap-service/internal/xform"
	"go.uber.org/zap"
)

// ConvertUseCase - сабмиты → объекты OSM → .osm и .geojson
type ConvertUseCase struct {
	mapping   *xform.Mapping
	schema    *domain.FormSchema
	sticky    repository.StickyRepository
	survey    repository.SurveyRepository
	generator string
	logger    *zap.Logger
}

// NewConvertUseCase создает use case конвертации.
// sticky == nil - last-saved значения живут только в пределах одного запуска;
// survey == nil - выгрузка с сервера сбора недоступна.
func NewConvertUseCase(
	mapping *xform.Mapping,
	schema *domain.FormSchema,
	sticky repository.StickyRepository,
	survey repository.SurveyRepository,
	generator string,
	logger *zap.Logger,
) *ConvertUseCase {
	if mapping == nil {
		mapping = xform.Default()
	}
	return &ConvertUseCase{
		mapping:   mapping,
		schema:    schema,
		sticky:    sticky,
		survey:    survey,
		generator: generator,
		logger:    logger,
	}
}

// Features разбирает выгрузку и собирает объекты. Записи, из которых не
// получилось собрать объект, пропускаются с предупреждением.
func (uc *ConvertUseCase) Features(ctx context.Context, format string, r io.Reader) ([]*domain.Feature, *dto.ConvertResult, error) {
	p, err := parser.New(format, parser.Options{
		Mapping: uc.mapping,
		Schema:  uc.schema,
		Sticky:  uc.sticky,
	}, uc.logger)
	if err != nil {
		return nil, nil, err
	}

	records, err := p.Parse(ctx, r)
	if err != nil {
		return nil, nil, err
	}

	asm := assembler.New(uc.mapping, uc.schema, uc.logger)
	result := &dto.ConvertResult{Records: len(records)}
	features := make([]*domain.Feature, 0, len(records))

	for i, rec := range records {
		f, err := asm.Assemble(rec)
		if err != nil {
			uc.logger.Warn("Skipping record", zap.Int("index", i), zap.Error(err))
			result.Skipped++
			continue
		}
		features = append(features, f)
	}
	result.Features = len(features)

	return features, result, nil
}

// WriteOSM пишет объекты в OSM XML
func (uc *ConvertUseCase) WriteOSM(w io.Writer, features []*domain.Feature) error {
	writer, err := osmxml.NewWriter(w, uc.logger,
		osmxml.WithGenerator(uc.generator),
		osmxml.WithStartBelow(features))
	if err != nil {
		return err
	}
	defer writer.Close()

	for _, f := range features {
		if err := writer.Write(f, false); err != nil {
			return err
		}
	}
	return writer.Close()
}

// WriteGeoJSON пишет точки в GeoJSON FeatureCollection
func (uc *ConvertUseCase) WriteGeoJSON(w io.Writer, features []*domain.Feature) error {
	writer := geojson.NewWriter(w, uc.logger)
	defer writer.Close()

	for _, f := range features {
		if err := writer.Write(f); err != nil {
			return err
		}
	}
	return writer.Close()
}

// ConvertFile конвертирует файл выгрузки в outBase.osm и outBase.geojson
func (uc *ConvertUseCase) ConvertFile(ctx context.Context, input, outBase string) (*dto.ConvertResult, error) {
	format := parser.DetectFormat(input)
	if format == "" {
		return nil, errors.Newf(errors.ErrInput, "cannot detect submission format of %s", input)
	}

	file, err := os.Open(input)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err, "failed to open %s", input)
	}
	defer file.Close()

	return uc.convert(ctx, format, file, outputBase(input, outBase))
}

// ConvertRemote выгружает сабмиты формы с сервера сбора и конвертирует их
func (uc *ConvertUseCase) ConvertRemote(ctx context.Context, req dto.RemoteConvertRequest) (*dto.ConvertResult, error) {
	if uc.survey == nil {
		return nil, errors.Newf(errors.ErrInput, "survey server is not configured")
	}

	format := req.Format
	if format == "" {
		format = domain.FormatJSON
	}

	payload, err := uc.survey.FetchSubmissions(ctx, req.ProjectID, req.FormID, format)
	if err != nil {
		return nil, err
	}

	return uc.convert(ctx, payload.Format, bytes.NewReader(payload.Data), req.OutBase)
}

func (uc *ConvertUseCase) convert(ctx context.Context, format string, r io.Reader, outBase string) (*dto.ConvertResult, error) {
	features, result, err := uc.Features(ctx, format, r)
	if err != nil {
		return nil, err
	}

	result.OSMPath = outBase + ".osm"
	result.GeoJSONPath = outBase + ".geojson"

	if err := writeFile(result.OSMPath, func(w io.Writer) error { return uc.WriteOSM(w, features) }); err != nil {
		return nil, err
	}
	if err := writeFile(result.GeoJSONPath, func(w io.Writer) error { return uc.WriteGeoJSON(w, features) }); err != nil {
		return nil, err
	}

	uc.logger.Info("Conversion finished",
		zap.Int("records", result.Records),
		zap.Int("features", result.Features),
		zap.Int("skipped", result.Skipped),
		zap.String("osm", result.OSMPath),
		zap.String("geojson", result.GeoJSONPath))

	return result, nil
}

// outputBase - путь без расширения; по умолчанию рядом с входным файлом
func outputBase(input, outBase string) string {
	if outBase != "" {
		return strings.TrimSuffix(outBase, filepath.Ext(outBase))
	}
	return strings.TrimSuffix(input, filepath.Ext(input))
}

// writeFile создает файл, передает его в fn и закрывает на любом пути
func writeFile(path string, fn func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrIO, err, "failed to create %s", path)
	}
	defer file.Close()

	if err := fn(file); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return errors.Wrap(errors.ErrIO, err, "failed to close %s", path)
	}
	return nil
}
