package s1_universe

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/pkg/config"
)

// Source formats
const (
	FormatCSV  = "csv"
	FormatHTML = "html"
)

// Definition describes where a universe's symbol list comes from
type Definition struct {
	ID        string `json:"id"`
	SourceURL string `json:"source_url"` // http(s) URL or local path
	Format    string `json:"format"`     // csv or html
	Suffix    string `json:"suffix"`     // exchange suffix appended to each symbol
}

// Registry maps universe ids to definitions
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates a registry holding the configured default universe
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{defs: make(map[string]Definition)}
	r.Register(Definition{
		ID:        cfg.Universe.ID,
		SourceURL: cfg.Universe.SourceURL,
		Format:    formatOf(cfg.Universe.SourceURL),
		Suffix:    cfg.Universe.Suffix,
	})
	return r
}

// Register adds or replaces a definition. Ids are case-insensitive.
func (r *Registry) Register(def Definition) {
	if def.Format == "" {
		def.Format = formatOf(def.SourceURL)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[strings.ToUpper(def.ID)] = def
}

// Get returns the definition for id
func (r *Registry) Get(id string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", contracts.ErrUnknownUniverse, id)
	}
	return def, nil
}

// IDs lists registered universe ids, sorted
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.defs))
	for _, def := range r.defs {
		ids = append(ids, def.ID)
	}
	sort.Strings(ids)
	return ids
}

// formatOf guesses the source format from its extension
func formatOf(source string) string {
	s := strings.ToLower(source)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if strings.HasSuffix(s, ".html") || strings.HasSuffix(s, ".htm") {
		return FormatHTML
	}
	return FormatCSV
}
