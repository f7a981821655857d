package classifier

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/miradorstack/churn-explainer/internal/models"
	"github.com/miradorstack/churn-explainer/internal/utils"
)

// Source names one artifact to load at startup.
type Source struct {
	Name  string
	Label string
	Path  string
}

// Entry is a loaded model plus its display metadata.
type Entry struct {
	Name  string
	Label string
	Model Model
}

// Registry is the read-only set of models built once at startup.
type Registry struct {
	entries   []Entry
	byName    map[string]int
	aggregate []string
}

// LoadRegistry loads every source, failing on the first bad artifact.
// Relative paths resolve against dir. aggregate names the models averaged
// into the headline risk and must all be present in sources.
func LoadRegistry(dir string, sources []Source, aggregate []string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	const op = "classifier.LoadRegistry"

	entries := make([]Entry, 0, len(sources))
	for _, src := range sources {
		if src.Name == "" {
			return nil, utils.NewAppError(utils.KindArtifactLoad, op, "model source without a name", nil)
		}
		path := src.Path
		if path == "" {
			path = src.Name + ".yaml"
		}
		if !filepath.IsAbs(path) && dir != "" {
			path = filepath.Join(dir, path)
		}
		artifact, model, err := LoadArtifact(path)
		if err != nil {
			return nil, utils.NewAppError(utils.KindArtifactLoad, op, "load model "+src.Name, err)
		}
		if artifact.Name != "" && artifact.Name != src.Name {
			return nil, utils.NewAppError(utils.KindArtifactLoad, op,
				fmt.Sprintf("artifact %s is named %q, configured as %q", path, artifact.Name, src.Name), nil)
		}
		label := src.Label
		if label == "" {
			label = src.Name
		}
		entries = append(entries, Entry{Name: src.Name, Label: label, Model: model})
		logger.Debug("model loaded", "model", src.Name, "kind", model.Kind(), "path", path)
	}

	reg, err := NewRegistry(entries, aggregate)
	if err != nil {
		return nil, utils.NewAppError(utils.KindArtifactLoad, op, "build registry", err)
	}
	logger.Info("model registry ready", "models", len(entries), "aggregate", aggregate)
	return reg, nil
}

// NewRegistry assembles a registry from already-built models.
func NewRegistry(entries []Entry, aggregate []string) (*Registry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no models configured")
	}
	if len(aggregate) == 0 {
		return nil, fmt.Errorf("no aggregate models configured")
	}
	r := &Registry{byName: make(map[string]int, len(entries))}
	for _, e := range entries {
		if e.Model == nil {
			return nil, fmt.Errorf("model %q is nil", e.Name)
		}
		if _, dup := r.byName[e.Name]; dup {
			return nil, fmt.Errorf("model %q configured twice", e.Name)
		}
		if e.Label == "" {
			e.Label = e.Name
		}
		r.byName[e.Name] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	seen := make(map[string]struct{}, len(aggregate))
	for _, name := range aggregate {
		if _, ok := r.byName[name]; !ok {
			return nil, fmt.Errorf("aggregate model %q is not loaded", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("aggregate model %q listed twice", name)
		}
		seen[name] = struct{}{}
	}
	r.aggregate = append([]string(nil), aggregate...)
	return r, nil
}

// Get returns the named model.
func (r *Registry) Get(name string) (Entry, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Entries returns every loaded model in configured order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Aggregate returns the models averaged into the headline risk, in configured order.
func (r *Registry) Aggregate() []Entry {
	out := make([]Entry, 0, len(r.aggregate))
	for _, name := range r.aggregate {
		out = append(out, r.entries[r.byName[name]])
	}
	return out
}

// IsAggregate reports whether name contributes to the headline risk.
func (r *Registry) IsAggregate(name string) bool {
	for _, n := range r.aggregate {
		if n == name {
			return true
		}
	}
	return false
}

// Infos describes every loaded model for listing endpoints.
func (r *Registry) Infos() []models.ModelInfo {
	out := make([]models.ModelInfo, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, models.ModelInfo{
			Name:      e.Name,
			Label:     e.Label,
			Kind:      string(e.Model.Kind()),
			Features:  e.Model.Features(),
			Aggregate: r.IsAggregate(e.Name),
		})
	}
	return out
}
