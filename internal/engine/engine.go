// Package engine runs draft records through role classification, hazard code
// normalization, correlation and keyword derivation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/disaster-correlation-etl/internal/domain"
	"github.com/couchcryptid/disaster-correlation-etl/internal/taxonomy"
)

const (
	defaultWorkers = 4
	maxWorkers     = 64
)

// Engine finishes draft records against one taxonomy table. It is safe for
// concurrent use.
type Engine struct {
	table        *taxonomy.Table
	normalizer   *domain.Normalizer
	clock        clockwork.Clock
	sourceTag    string
	allowPartial bool
	workers      int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source for ProcessedAt.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSourceTag sets the trailing component of correlation keys.
func WithSourceTag(tag string) Option {
	return func(e *Engine) { e.sourceTag = tag }
}

// WithAllowPartial keeps records whose correlation key cannot be built,
// without a correlation id, instead of rejecting them.
func WithAllowPartial(allow bool) Option {
	return func(e *Engine) { e.allowPartial = allow }
}

// WithWorkers bounds how many records FinishAll processes at once.
// Values outside 1..64 fall back to the default of 4.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n >= 1 && n <= maxWorkers {
			e.workers = n
		}
	}
}

// New creates an Engine over a built taxonomy table.
func New(table *taxonomy.Table, opts ...Option) *Engine {
	e := &Engine{
		table:      table,
		normalizer: domain.NewNormalizer(table),
		clock:      clockwork.NewRealClock(),
		sourceTag:  domain.DefaultSourceTag,
		workers:    defaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Finish turns one draft into a finished record.
//
// Role and hazard code failures return a zero record. When only the
// correlation key cannot be built the record is returned together with the
// error so callers can keep it as a partial record.
func (e *Engine) Finish(draft domain.DraftRecord) (domain.FinishedRecord, error) {
	role, err := domain.Classify(draft.Roles)
	if err != nil {
		return domain.FinishedRecord{}, err
	}
	if err := draft.Validate(role); err != nil {
		return domain.FinishedRecord{}, err
	}

	codes, err := e.normalizer.Normalize(draft.HazardCodes, role)
	if err != nil {
		return domain.FinishedRecord{}, err
	}

	rec := domain.FinishedRecord{
		ID:            draft.ID,
		Title:         draft.Title,
		Description:   draft.Description,
		Source:        draft.Source,
		Role:          role,
		Roles:         role.Markers(),
		HazardCodes:   codes,
		CountryCodes:  domain.CleanCountries(draft.CountryCodes),
		EpisodeNumber: draft.EpisodeNumber,
		OccurredAt:    draft.OccurredAt.UTC(),
		Keywords:      domain.DeriveKeywords(e.table, codes),
		Geometry:      draft.Geometry,
		Properties:    draft.Properties,
		ImpactDetail:  draft.ImpactDetail,
		ProcessedAt:   e.clock.Now().UTC(),
	}
	if rec.ID == "" {
		rec.ID = domain.GenerateID(draft.Source+"-"+string(role.Kind), generatedIDParts(rec)...)
	}
	if role.IsHazard() {
		rec.HazardDetail = e.hazardDetail(draft.HazardDetail, codes)
	}

	key, err := domain.BuildKey(rec.CountryCodes, codes, draft.OccurredAt, draft.EpisodeNumber, e.sourceTag)
	if err != nil {
		return rec, err
	}
	rec.CorrelationID = key
	return rec, nil
}

// hazardDetail copies the source's detail and fills the cluster from the
// hazard codes when the source left it empty.
func (e *Engine) hazardDetail(src *domain.HazardDetail, codes domain.HazardCodeSet) *domain.HazardDetail {
	var d domain.HazardDetail
	if src != nil {
		d = *src
	}
	if d.Cluster == "" {
		d.Cluster, _ = e.table.ClusterKey(codes.Codes())
	}
	return &d
}

func generatedIDParts(rec domain.FinishedRecord) []string {
	parts := append([]string{}, rec.HazardCodes.Codes()...)
	parts = append(parts, rec.CountryCodes...)
	return append(parts, rec.OccurredAt.Format("20060102"), strconv.Itoa(rec.EpisodeNumber), rec.Title)
}

// BatchResult holds the outcome of FinishAll in input order.
// FinishedIndex[i] is the batch index of the draft behind Finished[i].
type BatchResult struct {
	Finished      []domain.FinishedRecord
	FinishedIndex []int
	Errors        []*domain.RecordError
}

type outcome struct {
	rec domain.FinishedRecord
	err error
}

// FinishAll finishes independent drafts concurrently. A failing record never
// affects its siblings: it is reported in Errors with its batch index. With
// partial records allowed, records missing only their correlation key appear
// in both Finished and Errors. The returned error is non-nil only when ctx
// ends before the batch completes.
func (e *Engine) FinishAll(ctx context.Context, drafts []domain.DraftRecord) (BatchResult, error) {
	outcomes := make([]outcome, len(drafts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range drafts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := e.Finish(drafts[i])
			outcomes[i] = outcome{rec: rec, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, fmt.Errorf("finish batch: %w", err)
	}

	var res BatchResult
	for i, o := range outcomes {
		if o.err == nil {
			res.Finished = append(res.Finished, o.rec)
			res.FinishedIndex = append(res.FinishedIndex, i)
			continue
		}

		recErr := &domain.RecordError{Index: i, RecordID: drafts[i].ID, Err: o.err}
		if e.allowPartial && errors.Is(o.err, domain.ErrUnresolvableCorrelationInput) {
			recErr.RecordID = o.rec.ID
			recErr.Partial = true
			res.Finished = append(res.Finished, o.rec)
			res.FinishedIndex = append(res.FinishedIndex, i)
		}
		res.Errors = append(res.Errors, recErr)
	}
	return res, nil
}
