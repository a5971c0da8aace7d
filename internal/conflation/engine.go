package conflation

import (
	"context"
	"runtime"
	"strings"

	"github.com/destel/rill"
	"github.com/fieldmap-service/internal/domain"
	"github.com/fieldmap-service/internal/domain/repository"
	apperrors "github.com/fieldmap-service/internal/pkg/errors"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

const (
	DefaultTolerance = 2.0
	DuplicateFixme   = "Probably a duplicate!"
	FailureNote      = "Conflation failed, tags were not merged"
)

// Match describes how a feature was matched to the reference.
type Match int

const (
	MatchNone Match = iota
	MatchID
	MatchContainment
	MatchDuplicate
	MatchFailed
)

func (m Match) String() string {
	switch m {
	case MatchID:
		return "id"
	case MatchContainment:
		return "containment"
	case MatchDuplicate:
		return "duplicate"
	case MatchFailed:
		return "failed"
	default:
		return "none"
	}
}

// Result - объект после конфляции
type Result struct {
	Feature *domain.Feature
	Match   Match
	// Modified - объект совпал с существующим и должен писаться с action=modify
	Modified bool
}

// Engine сопоставляет новые объекты с эталонным снимком
type Engine struct {
	ref       repository.ReferenceRepository
	policy    MergePolicy
	tolerance float64
	workers   int
	logger    *zap.Logger
}

type Option func(*Engine)

func WithMergePolicy(p MergePolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithTolerance задаёт радиус поиска дубликатов в метрах
func WithTolerance(meters float64) Option {
	return func(e *Engine) {
		if meters > 0 {
			e.tolerance = meters
		}
	}
}

func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func NewEngine(ref repository.ReferenceRepository, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		ref:       ref,
		policy:    PolicyLowest,
		tolerance: DefaultTolerance,
		workers:   runtime.NumCPU(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Conflate делит объекты на части по числу воркеров и обрабатывает их параллельно.
// Порядок результатов совпадает с порядком входа.
func (e *Engine) Conflate(ctx context.Context, features []*domain.Feature) ([]Result, error) {
	if len(features) == 0 {
		return nil, nil
	}

	preloaded := e.preload(ctx, features)

	chunks := split(features, e.workers)
	in := rill.FromSlice(chunks, nil)
	out := rill.OrderedMap(in, len(chunks), func(chunk []*domain.Feature) ([]Result, error) {
		results := make([]Result, 0, len(chunk))
		for _, f := range chunk {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results = append(results, e.conflate(ctx, f, preloaded))
		}
		return results, nil
	})

	parts, err := rill.ToSlice(out)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(features))
	for _, p := range parts {
		results = append(results, p...)
	}

	e.logStats(results)
	return results, nil
}

// ConflateOne обрабатывает один объект
func (e *Engine) ConflateOne(ctx context.Context, f *domain.Feature) Result {
	return e.conflate(ctx, f, nil)
}

// preload загружает объекты с положительными id одним запросом, если источник это умеет
func (e *Engine) preload(ctx context.Context, features []*domain.Feature) map[int64]*domain.ReferenceFeature {
	loader, ok := e.ref.(repository.ReferenceBatchLoader)
	if !ok {
		return nil
	}

	var ids []int64
	for _, f := range features {
		if id := f.ID(); id > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	refs, err := loader.GetByIDs(ctx, ids)
	if err != nil {
		e.logger.Warn("Batch reference lookup failed, falling back to single lookups", zap.Error(err))
		return nil
	}
	return refs
}

func (e *Engine) conflate(ctx context.Context, f *domain.Feature, preloaded map[int64]*domain.ReferenceFeature) Result {
	out := f.Clone()

	// 1. Совпадение по id
	if id := out.ID(); id > 0 {
		var ref *domain.ReferenceFeature
		if preloaded != nil {
			ref = preloaded[id]
		} else {
			var err error
			ref, err = e.ref.GetByID(ctx, id)
			if err != nil {
				return e.failed(out, err)
			}
		}
		if ref != nil {
			out.Tags = e.policy.Merge(out.Tags, ref.Tags)
			out.Attrs.Version = nextVersion(out.Attrs.Version, ref.Version)
			return Result{Feature: out, Match: MatchID, Modified: true}
		}
	}

	if out.IsWay() {
		return Result{Feature: out, Match: MatchNone}
	}
	pt, err := out.Point()
	if err != nil {
		return Result{Feature: out, Match: MatchNone}
	}

	// 2. Точка внутри здания: объект принимает id и контур здания
	building, err := e.ref.FindContaining(ctx, pt)
	if err != nil {
		return e.failed(out, err)
	}
	if building != nil {
		if poly, ok := building.Polygon(); ok && len(poly[0]) > 0 {
			adoptBuilding(out, building, poly[0])
			out.Tags = e.policy.Merge(out.Tags, building.Tags)
			return Result{Feature: out, Match: MatchContainment, Modified: true}
		}
	}

	// 3. Рядом есть объект с общим тегом
	if out.ID() <= 0 {
		nearby, err := e.ref.FindNearby(ctx, pt, e.tolerance)
		if err != nil {
			return e.failed(out, err)
		}
		for _, ref := range nearby {
			if sharesTag(out.Tags, ref.Tags) {
				out.Tags.Set("fixme", DuplicateFixme)
				return Result{Feature: out, Match: MatchDuplicate}
			}
		}
	}

	return Result{Feature: out, Match: MatchNone}
}

func (e *Engine) failed(f *domain.Feature, err error) Result {
	cerr := apperrors.Wrap(apperrors.ErrConflation, err, "reference query failed")
	e.logger.Warn("Conflation failed, emitting feature unmerged",
		zap.Int64("id", f.ID()),
		zap.Error(cerr),
	)
	f.Tags.Set("note", FailureNote)
	return Result{Feature: f, Match: MatchFailed}
}

func (e *Engine) logStats(results []Result) {
	counts := make(map[Match]int)
	for _, r := range results {
		counts[r.Match]++
	}
	e.logger.Info("Conflation finished",
		zap.Int("features", len(results)),
		zap.Int("id_matches", counts[MatchID]),
		zap.Int("containment", counts[MatchContainment]),
		zap.Int("duplicates", counts[MatchDuplicate]),
		zap.Int("failed", counts[MatchFailed]),
	)
}

func adoptBuilding(f *domain.Feature, building *domain.ReferenceFeature, ring orb.Ring) {
	f.Kind = domain.KindWay
	f.SetID(building.ID)
	f.Attrs.Version = nextVersion(0, building.Version)
	f.Attrs.Lat, f.Attrs.Lon = "", ""
	f.Refs = nil
	f.Coords = append([]orb.Point(nil), ring...)
}

// nextVersion - версия существующего объекта плюс один
func nextVersion(current, reference int) int {
	v := reference
	if current > v {
		v = current
	}
	return v + 1
}

// sharesTag сообщает, есть ли хотя бы одна общая пара ключ/значение
func sharesTag(a, b domain.Tags) bool {
	for _, t := range a {
		if v, ok := b.Get(t.Key); ok && strings.EqualFold(v, t.Value) {
			return true
		}
	}
	return false
}

// split делит срез на n почти равных частей
func split(features []*domain.Feature, n int) [][]*domain.Feature {
	if n < 1 {
		n = 1
	}
	size := (len(features) + n - 1) / n
	chunks := make([][]*domain.Feature, 0, n)
	for start := 0; start < len(features); start += size {
		end := start + size
		if end > len(features) {
			end = len(features)
		}
		chunks = append(chunks, features[start:end])
	}
	return chunks
}
