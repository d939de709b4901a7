// Package manifest records the provenance of a pipeline run: when it
// started and ended, which files it read and wrote, and the state of the
// environment it ran in (git, host platform, Go runtime and modules).
//
// A Manifest is created by the caller at the start of a run, passed to the
// code that consumes and produces files, and saved once at the end:
//
//	m := manifest.New(manifest.WithLogger(logger))
//	m.AppendInput("raw/a.csv")
//	m.AppendOutput("clean/a.parquet")
//	err := m.Save(ctx, "manifests/run.json")
package manifest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simon020286/go-manifest/config"
	"github.com/simon020286/go-manifest/inspect"
	"github.com/simon020286/go-manifest/models"
	"github.com/simon020286/go-manifest/sinks"
)

// Manifest accumulates the provenance of one run
type Manifest struct {
	id    string
	start time.Time

	inputs  map[string]struct{}
	outputs map[string]struct{}
	mutex   sync.RWMutex

	clock     func() time.Time
	inspector inspect.Inspector
	eventBus  *eventBus

	destination config.ValueSpec // configured by FromConfig; nil prints to stdout
}

// New creates a manifest and captures its start time
func New(opts ...Option) *Manifest {
	m := &Manifest{
		inputs:    make(map[string]struct{}),
		outputs:   make(map[string]struct{}),
		clock:     time.Now,
		inspector: inspect.System{},
		eventBus:  newEventBus(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.id == "" {
		m.id = uuid.NewString()
	}
	m.start = m.clock().UTC()
	return m
}

// ID returns the run identifier
func (m *Manifest) ID() string {
	return m.id
}

// Start returns the UTC time the manifest was created
func (m *Manifest) Start() time.Time {
	return m.start
}

// AppendInput records a file the run consumed. Names are not checked
// against the filesystem; recording the same name twice is a no-op.
func (m *Manifest) AppendInput(name string) {
	if m.add(m.inputs, name) {
		m.eventBus.EmitInputAppended(m.id, name)
	}
}

// AppendOutput records a file the run produced
func (m *Manifest) AppendOutput(name string) {
	if m.add(m.outputs, name) {
		m.eventBus.EmitOutputAppended(m.id, name)
	}
}

// AddListener registers a listener for manifest events
func (m *Manifest) AddListener(listener models.EventListener) {
	m.eventBus.addListener(listener)
}

func (m *Manifest) add(set map[string]struct{}, name string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := set[name]; exists {
		return false
	}
	set[name] = struct{}{}
	return true
}

// Inputs returns the recorded inputs, sorted
func (m *Manifest) Inputs() []string {
	return m.sorted(m.inputs)
}

// Outputs returns the recorded outputs, sorted
func (m *Manifest) Outputs() []string {
	return m.sorted(m.outputs)
}

func (m *Manifest) sorted(set map[string]struct{}) []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Report assembles the current snapshot. End is captured now and never
// precedes Start.
func (m *Manifest) Report(ctx context.Context) *models.Report {
	end := m.clock().UTC()
	if end.Before(m.start) {
		end = m.start
	}

	return &models.Report{
		ID:      m.id,
		Start:   m.start,
		End:     end,
		Inputs:  m.Inputs(),
		Outputs: m.Outputs(),
		Git:     m.inspector.Git(ctx),
		Uname:   m.inspector.Platform(),
		Runtime: m.inspector.Runtime(),
	}
}

// Save writes the report to destination. "" and "-" print to standard
// output; other values select a sink (see package sinks).
func (m *Manifest) Save(ctx context.Context, destination string) error {
	return m.SaveTo(ctx, config.NewStaticValue(destination))
}

// Finish saves to the destination configured through FromConfig
func (m *Manifest) Finish(ctx context.Context) error {
	return m.SaveTo(ctx, m.destination)
}

// SaveTo resolves spec against the report and writes it there.
// JS expressions see the report as `run` plus `id` and `date`.
func (m *Manifest) SaveTo(ctx context.Context, spec config.ValueSpec) error {
	report := m.Report(ctx)

	scope, err := m.scope(report)
	if err != nil {
		return m.fail("", err)
	}

	destination, err := config.ResolveString("destination", spec, scope)
	if err != nil {
		return m.fail("", err)
	}

	sink, err := sinks.Open(destination)
	if err != nil {
		return m.fail(destination, err)
	}

	return m.write(ctx, sink, report, destination)
}

// SaveWith writes the report to an already opened sink and closes it
func (m *Manifest) SaveWith(ctx context.Context, sink sinks.Sink) error {
	return m.write(ctx, sink, m.Report(ctx), fmt.Sprintf("%T", sink))
}

func (m *Manifest) write(ctx context.Context, sink sinks.Sink, report *models.Report, destination string) (err error) {
	defer func() {
		if cerr := sink.Close(); err == nil && cerr != nil {
			err = m.fail(destination, fmt.Errorf("close sink: %w", cerr))
		}
	}()

	if err := sink.Write(ctx, report); err != nil {
		return m.fail(destination, err)
	}

	m.eventBus.EmitReportSaved(m.id, destination, len(report.Inputs), len(report.Outputs))
	m.eventBus.Wait()
	return nil
}

func (m *Manifest) fail(destination string, err error) error {
	err = fmt.Errorf("save manifest %s: %w", m.id, err)
	m.eventBus.EmitReportError(m.id, destination, err)
	m.eventBus.Wait()
	return err
}

func (m *Manifest) scope(report *models.Report) (map[string]any, error) {
	run, err := models.AsMap(report)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"run":  run,
		"id":   m.id,
		"date": m.start.Format("2006-01-02"),
	}, nil
}
