// Package metrics aggregates model runs into counters and renders them in
// the Prometheus text exposition format.
package metrics

import (
	"context"
	"io"
	"reflect"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/aigoflow/scoring-service/internal/models"
)

const (
	metricRuns       = "scoring_model_runs_total"
	metricRunErrors  = "scoring_model_run_errors_total"
	metricRunSeconds = "scoring_model_run_seconds_total"
	metricInputs     = "scoring_inputs_emitted_total"
	labelModel       = "model_name"
)

type modelStats struct {
	runs    float64
	errors  float64
	seconds float64
	inputs  float64
}

// Registry is an emitter sink that only counts. It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	stats map[string]*modelStats
}

func NewRegistry() *Registry {
	return &Registry{stats: make(map[string]*modelStats)}
}

func (r *Registry) get(model string) *modelStats {
	s, ok := r.stats[model]
	if !ok {
		s = &modelStats{}
		r.stats[model] = s
	}
	return s
}

func (r *Registry) EmitInputs(_ context.Context, rec *models.InputRecord, _ models.Tags) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(rec.ModelName).inputs++
	return nil
}

func (r *Registry) EmitResults(context.Context, *models.ResultRecord, models.Tags) error {
	return nil
}

func (r *Registry) EmitModelRuns(_ context.Context, rec *models.ModelRun, _ models.Tags) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.get(rec.ModelName)
	s.runs++
	s.seconds += rec.ExecutionTime
	if HasError(rec.Error) {
		s.errors++
	}
	return nil
}

// Families snapshots the counters, one family per metric, models sorted.
func (r *Registry) Families() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.stats))
	for name := range r.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	build := func(name, help string, value func(*modelStats) float64) *dto.MetricFamily {
		mf := &dto.MetricFamily{
			Name: proto.String(name),
			Help: proto.String(help),
			Type: dto.MetricType_COUNTER.Enum(),
		}
		for _, model := range names {
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label:   []*dto.LabelPair{{Name: proto.String(labelModel), Value: proto.String(model)}},
				Counter: &dto.Counter{Value: proto.Float64(value(r.stats[model]))},
			})
		}
		return mf
	}

	return []*dto.MetricFamily{
		build(metricRuns, "Model runs recorded.", func(s *modelStats) float64 { return s.runs }),
		build(metricRunErrors, "Model runs whose outcome carried an error.", func(s *modelStats) float64 { return s.errors }),
		build(metricRunSeconds, "Total execution time of model runs in seconds.", func(s *modelStats) float64 { return s.seconds }),
		build(metricInputs, "Input snapshots emitted.", func(s *modelStats) float64 { return s.inputs }),
	}
}

// WriteText writes all families in the text exposition format.
func (r *Registry) WriteText(w io.Writer) error {
	for _, mf := range r.Families() {
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// HasError reports whether an outcome error value carries anything. nil,
// empty strings and containers holding only empty values count as no error.
func HasError(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() > 0
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if HasError(rv.Index(i).Interface()) {
				return true
			}
		}
		return false
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if HasError(iter.Value().Interface()) {
				return true
			}
		}
		return false
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return HasError(rv.Elem().Interface())
	}
	return true
}
