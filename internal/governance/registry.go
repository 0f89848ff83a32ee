package governance

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// registryFile is the on-disk YAML layout.
type registryFile struct {
	Deviations []Record `yaml:"deviations"`
}

// Proposal carries the fields a new Proposed record is created from.
type Proposal struct {
	Title      string
	Scenarios  []string
	Summary    string
	UserImpact string
	Rationale  string
}

// Registry is the set of deviation records for one candidate adapter.
//
// Records are append-only: they are added or change status, never removed.
//
// Thread Safety:
//   - All methods are safe for concurrent use
//   - Reads return copies; callers cannot mutate stored records
type Registry struct {
	mu      sync.RWMutex
	path    string
	records []Record
}

// NewRegistry returns an in-memory registry holding records.
func NewRegistry(records ...Record) *Registry {
	r := &Registry{}
	for _, rec := range records {
		r.records = append(r.records, rec.clone())
	}
	return r
}

// Load reads a registry file. A missing file yields an empty registry bound
// to path, so the first Save creates it.
//
// Load does not validate; structural problems surface from Validate and
// Evaluate so they can be reported in full.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Registry path comes from operator config
	if errors.Is(err, fs.ErrNotExist) {
		return &Registry{path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry file: %w", err)
	}

	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrGovernance, path, err)
	}
	r := NewRegistry(f.Deviations...)
	r.path = path
	return r, nil
}

// Path returns the file the registry was loaded from, if any.
func (r *Registry) Path() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path
}

// Save writes the registry back to its file via a temp file and rename.
func (r *Registry) Save() error {
	r.mu.RLock()
	path := r.path
	data, err := yaml.Marshal(registryFile{Deviations: r.records})
	r.mu.RUnlock()

	if path == "" {
		return errors.New("governance: registry has no file path")
	}
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".deviations-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp registry file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing registry file: %w", err)
	}
	return nil
}

// Records returns a snapshot of every record in file order.
func (r *Registry) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.clone()
	}
	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Find returns the record with the given id.
func (r *Registry) Find(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexLocked(id); i >= 0 {
		return r.records[i].clone(), true
	}
	return Record{}, false
}

// FindByScenario returns the first record linking scenario.
func (r *Registry) FindByScenario(scenario string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.Links(scenario) {
			return rec.clone(), true
		}
	}
	return Record{}, false
}

// FilterByStatus returns every record in state s.
func (r *Registry) FilterByStatus(s Status) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Record
	for _, rec := range r.records {
		if rec.Status == s {
			out = append(out, rec.clone())
		}
	}
	return out
}

// Add appends a hand-authored record, which may be in any state.
func (r *Registry) Add(rec Record) error {
	if !rec.Status.Defined() {
		return fmt.Errorf("%w: %s: undefined status %q", ErrGovernance, rec.ID, rec.Status)
	}
	if _, ok := idNumber(rec.ID); !ok {
		return fmt.Errorf("%w: id must look like %s001, got %q", ErrGovernance, IDPrefix, rec.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexLocked(rec.ID) >= 0 {
		return fmt.Errorf("%w: duplicate deviation id %s", ErrGovernance, rec.ID)
	}
	if owner, s, ok := r.ownerLocked(rec.LinkedScenarios); ok {
		return fmt.Errorf("%w: scenario %s is already claimed by %s", ErrGovernance, s, owner)
	}
	r.records = append(r.records, rec.clone())
	return nil
}

// Propose records a newly detected difference as Proposed under the next
// free DEV-NNN id.
//
// Returns:
//   - Record: the stored record
//   - error: ErrGovernance when a field is empty or a scenario already has a record
func (r *Registry) Propose(p Proposal) (Record, error) {
	if len(p.Scenarios) == 0 {
		return Record{}, fmt.Errorf("%w: proposal needs at least one linked scenario", ErrGovernance)
	}
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Summary) == "" {
		return Record{}, fmt.Errorf("%w: proposal needs a title and summary", ErrGovernance)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, s, ok := r.ownerLocked(p.Scenarios); ok {
		return Record{}, fmt.Errorf("%w: scenario %s is already claimed by %s", ErrGovernance, s, owner)
	}

	next := 1
	for _, rec := range r.records {
		if n, ok := idNumber(rec.ID); ok && n >= next {
			next = n + 1
		}
	}

	rec := Record{
		ID:              FormatID(next),
		Title:           p.Title,
		LinkedScenarios: slices.Clone(p.Scenarios),
		Status:          StatusProposed,
		Summary:         p.Summary,
		UserImpact:      p.UserImpact,
		Rationale:       p.Rationale,
	}
	if rec.UserImpact == "" {
		rec.UserImpact = "Not yet assessed."
	}
	if rec.Rationale == "" {
		rec.Rationale = "Detected by the parity harness; awaiting review."
	}
	r.records = append(r.records, rec)
	return rec.clone(), nil
}

// Transition moves a Proposed record to a terminal state and records why.
// Terminal records cannot change; a behaviour fix is tracked by a new run.
func (r *Registry) Transition(id string, to Status, rationale string) (Record, error) {
	if strings.TrimSpace(rationale) == "" {
		return Record{}, fmt.Errorf("%w: %s: a rationale is required", ErrGovernance, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	from := r.records[i].Status
	if !from.CanTransition(to) {
		return Record{}, fmt.Errorf("%w: %s: cannot move from %s to %s", ErrGovernance, id, from.Label(), to.Label())
	}
	r.records[i].Status = to
	r.records[i].Rationale = rationale
	return r.records[i].clone(), nil
}

// Restore puts rec back in place of the record with the same ID. It undoes
// a decision that could not be persisted.
func (r *Registry) Restore(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(rec.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}
	r.records[i] = rec.clone()
	return nil
}

// SetRegressionTest names the test that pins an approved difference.
func (r *Registry) SetRegressionTest(id, test string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.records[i].RegressionTest = test
	return nil
}

func (r *Registry) indexLocked(id string) int {
	return slices.IndexFunc(r.records, func(rec Record) bool { return rec.ID == id })
}

// ownerLocked finds the first of scenarios already linked by a record.
func (r *Registry) ownerLocked(scenarios []string) (owner, scenario string, ok bool) {
	for _, s := range scenarios {
		for _, rec := range r.records {
			if rec.Links(s) {
				return rec.ID, s, true
			}
		}
	}
	return "", "", false
}
