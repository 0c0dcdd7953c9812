package render

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/petmvp/passportview/internal/backend"
	"github.com/petmvp/passportview/internal/passport"
	"github.com/petmvp/passportview/pkg/telemetry"
)

// RowState is the progress of a row's doctor lookup
type RowState int

const (
	RowPending RowState = iota
	RowResolved
	RowFailed
)

func (s RowState) String() string {
	switch s {
	case RowPending:
		return "pending"
	case RowResolved:
		return "resolved"
	case RowFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DoctorLookup is the outcome of resolving one row's doctor
type DoctorLookup struct {
	State  RowState
	Doctor *backend.Doctor
	Err    error
}

var errNoDoctor = errors.New("entry has no doctor")

type doctorResult struct {
	doctor *backend.Doctor
	err    error
}

// doctorResolver de-duplicates doctor lookups within one view
type doctorResolver struct {
	backend Backend
	lang    string
	metrics *telemetry.Metrics

	group singleflight.Group
	mu    sync.Mutex
	memo  map[string]doctorResult
}

func newDoctorResolver(b Backend, lang string, m *telemetry.Metrics) *doctorResolver {
	return &doctorResolver{
		backend: b,
		lang:    lang,
		metrics: m,
		memo:    make(map[string]doctorResult),
	}
}

func (r *doctorResolver) resolve(ctx context.Context, id string) (*backend.Doctor, error) {
	r.mu.Lock()
	if res, ok := r.memo[id]; ok {
		r.mu.Unlock()
		r.record(ctx, res.err == nil, true)
		return res.doctor, res.err
	}
	r.mu.Unlock()

	telemetry.AddEvent(ctx, "doctor.lookup", telemetry.AttrDoctorID.String(id))
	v, err, shared := r.group.Do(id, func() (any, error) {
		d, err := r.backend.GetDoctor(ctx, r.lang, id)
		r.mu.Lock()
		r.memo[id] = doctorResult{doctor: d, err: err}
		r.mu.Unlock()
		return d, err
	})
	r.record(ctx, err == nil, shared)
	if err != nil {
		return nil, err
	}
	return v.(*backend.Doctor), nil
}

func (r *doctorResolver) record(ctx context.Context, success, shared bool) {
	if r.metrics != nil {
		r.metrics.RecordDoctorLookup(ctx, success, shared)
	}
}

// lookupDoctors resolves the doctor of every row concurrently and returns
// once all lookups have finished. Results are indexed like rows.
func (v *View) lookupDoctors(ctx context.Context, section string, rows []passport.Entry) []DoctorLookup {
	results := make([]DoctorLookup, len(rows))

	var g errgroup.Group
	if v.maxLookups > 0 {
		g.SetLimit(v.maxLookups)
	}
	for i, row := range rows {
		id, ok := row.DoctorID()
		if !ok {
			results[i] = DoctorLookup{State: RowFailed, Err: errNoDoctor}
			continue
		}
		g.Go(func() error {
			d, err := v.doctors.resolve(ctx, id)
			if err != nil {
				results[i] = DoctorLookup{State: RowFailed, Err: err}
				return nil
			}
			results[i] = DoctorLookup{State: RowResolved, Doctor: d}
			return nil
		})
	}
	_ = g.Wait()

	for i, res := range results {
		if res.State == RowFailed {
			v.log.Warn("Doctor lookup failed",
				zap.String("section", section),
				zap.Int("row", i),
				zap.Error(res.Err),
			)
		}
	}
	return results
}
