package usecase

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fieldmap-service/internal/basemap"
	"github.com/fieldmap-service/internal/config"
	"github.com/fieldmap-service/internal/conflation"
	"github.com/fieldmap-service/internal/domain"
	"github.com/fieldmap-service/internal/domain/repository"
	"github.com/fieldmap-service/internal/geojson"
	"github.com/fieldmap-service/internal/osmxml"
	"github.com/fieldmap-service/internal/parser"
	"github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/repository/postgresosm"
	"github.com/fieldmap-service/internal/repository/reffile"
	"github.com/fieldmap-service/internal/usecase/dto"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// ReferencePostgres - значение Reference, выбирающее PostGIS базу
const ReferencePostgres = "postgres"

// ConflateUseCase сопоставляет новые объекты с эталонным снимком OSM
type ConflateUseCase struct {
	convert *ConvertUseCase
	db      *postgresosm.DB
	cfg     config.ConflationConfig
	logger  *zap.Logger
}

// NewConflateUseCase; db нужен только для Reference = "postgres"
func NewConflateUseCase(
	convert *ConvertUseCase,
	db *postgresosm.DB,
	cfg config.ConflationConfig,
	logger *zap.Logger,
) *ConflateUseCase {
	return &ConflateUseCase{
		convert: convert,
		db:      db,
		cfg:     cfg,
		logger:  logger,
	}
}

// OpenReference открывает эталон: GeoJSON файл или PostGIS, ограниченный boundary
func (uc *ConflateUseCase) OpenReference(ctx context.Context, reference string, boundary orb.Geometry) (repository.ReferenceRepository, error) {
	if strings.EqualFold(reference, ReferencePostgres) {
		if uc.db == nil {
			return nil, errors.Newf(errors.ErrInput, "postgres reference requested but database is not configured")
		}
		ref, err := postgresosm.NewReferenceRepository(ctx, uc.db, boundary, uc.logger)
		if err != nil {
			return nil, errors.Wrap(errors.ErrConflation, err, "failed to open postgres reference")
		}
		return ref, nil
	}
	return reffile.Load(reference, boundary, uc.logger)
}

// Conflate прогоняет объекты через движок конфляции
func (uc *ConflateUseCase) Conflate(ctx context.Context, features []*domain.Feature, ref repository.ReferenceRepository, req dto.ConflateRequest) ([]conflation.Result, error) {
	policy, err := conflation.ParseMergePolicy(firstNonEmpty(req.MergePolicy, uc.cfg.MergePolicy))
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err, "invalid merge policy")
	}
	tolerance := req.Tolerance
	if tolerance <= 0 {
		tolerance = uc.cfg.Tolerance
	}

	engine := conflation.NewEngine(ref, uc.logger,
		conflation.WithMergePolicy(policy),
		conflation.WithTolerance(tolerance),
		conflation.WithWorkers(uc.cfg.Workers),
	)
	return engine.Conflate(ctx, features)
}

// ConflateFile читает вход (.osm или выгрузку сабмитов), сопоставляет с эталоном
// и пишет outBase.osm и outBase.geojson
func (uc *ConflateUseCase) ConflateFile(ctx context.Context, req dto.ConflateRequest) (*dto.ConflateResult, error) {
	// 1. Граница
	var boundary orb.Geometry
	boundaryPath := firstNonEmpty(req.Boundary, uc.cfg.Boundary)
	if boundaryPath != "" {
		_, geom, err := basemap.ResolveAOIFile(boundaryPath)
		if err != nil {
			return nil, err
		}
		boundary = geom
	}

	// 2. Новые объекты
	features, err := uc.loadInput(ctx, req.Input)
	if err != nil {
		return nil, err
	}

	// 3. Эталон
	ref, err := uc.OpenReference(ctx, firstNonEmpty(req.Reference, uc.cfg.Reference), boundary)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	// 4. Конфляция
	results, err := uc.Conflate(ctx, features, ref, req)
	if err != nil {
		return nil, err
	}

	// 5. Вывод
	outBase := req.OutBase
	if outBase == "" {
		outBase = strings.TrimSuffix(req.Input, filepath.Ext(req.Input)) + "-conflated"
	}
	result := summarize(results)
	result.OSMPath = outBase + ".osm"
	result.GeoJSONPath = outBase + ".geojson"

	if err := writeFile(result.OSMPath, func(w io.Writer) error { return uc.writeOSM(w, results) }); err != nil {
		return nil, err
	}
	if err := writeFile(result.GeoJSONPath, func(w io.Writer) error { return uc.writeGeoJSON(w, results) }); err != nil {
		return nil, err
	}

	uc.logger.Info("Conflated output written",
		zap.String("osm", result.OSMPath),
		zap.String("geojson", result.GeoJSONPath))
	return result, nil
}

func (uc *ConflateUseCase) loadInput(ctx context.Context, input string) ([]*domain.Feature, error) {
	if strings.EqualFold(filepath.Ext(input), ".osm") {
		return osmxml.LoadFile(ctx, input)
	}

	format := parser.DetectFormat(input)
	if format == "" {
		return nil, errors.Newf(errors.ErrInput, "cannot detect input format of %s", input)
	}
	file, err := os.Open(input)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err, "failed to open %s", input)
	}
	defer file.Close()

	features, _, err := uc.convert.Features(ctx, format, file)
	return features, err
}

func (uc *ConflateUseCase) writeOSM(w io.Writer, results []conflation.Result) error {
	features := make([]*domain.Feature, 0, len(results))
	for _, r := range results {
		features = append(features, r.Feature)
	}
	writer, err := osmxml.NewWriter(w, uc.logger,
		osmxml.WithGenerator(uc.convert.generator),
		osmxml.WithStartBelow(features))
	if err != nil {
		return err
	}
	defer writer.Close()

	for _, r := range results {
		if err := writer.Write(r.Feature, r.Modified); err != nil {
			return err
		}
	}
	return writer.Close()
}

func (uc *ConflateUseCase) writeGeoJSON(w io.Writer, results []conflation.Result) error {
	writer := geojson.NewWriter(w, uc.logger)
	defer writer.Close()

	for _, r := range results {
		if err := writer.Write(r.Feature); err != nil {
			return err
		}
	}
	return writer.Close()
}

func summarize(results []conflation.Result) *dto.ConflateResult {
	result := &dto.ConflateResult{Features: len(results)}
	for _, r := range results {
		switch r.Match {
		case conflation.MatchID:
			result.IDMatches++
		case conflation.MatchContainment:
			result.Buildings++
		case conflation.MatchDuplicate:
			result.Duplicates++
		case conflation.MatchFailed:
			result.Failed++
		}
	}
	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
