package s1_universe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wonny/etfmomo/internal/contracts"
	"github.com/wonny/etfmomo/pkg/httputil"
	"github.com/wonny/etfmomo/pkg/logger"
	"github.com/wonny/etfmomo/pkg/redis"
)

// Loader resolves universe ids to symbol lists
// ⭐ SSOT: S1 universe loading
type Loader struct {
	registry   *Registry
	httpClient *httputil.Client
	cache      *redis.Cache // optional
	logger     *logger.Logger
}

// NewLoader creates a new Loader. cache may be nil.
func NewLoader(registry *Registry, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.NewNop()
	}
	return &Loader{
		registry:   registry,
		httpClient: httpClient,
		cache:      cache,
		logger:     log.WithField("module", "universe"),
	}
}

// Load implements contracts.UniverseSource
func (l *Loader) Load(ctx context.Context, id string) (*contracts.Universe, error) {
	def, err := l.registry.Get(id)
	if err != nil {
		return nil, err
	}

	key := redis.UniverseKey(def.ID)
	if l.cache != nil {
		var cached contracts.Universe
		hit, err := l.cache.Get(ctx, key, &cached)
		if err != nil {
			l.logger.WithError(err).Warn("Universe cache read failed")
		}
		if hit {
			return &cached, nil
		}
	}

	raw, err := l.read(ctx, def.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("load universe %s: %w", def.ID, err)
	}

	var symbols []string
	switch def.Format {
	case FormatHTML:
		symbols, err = ParseHTMLTable(bytes.NewReader(raw))
	default:
		symbols, err = ParseCSV(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("parse universe %s: %w", def.ID, err)
	}

	u := &contracts.Universe{
		ID:      def.ID,
		Symbols: normalize(symbols, def.Suffix),
		Suffix:  def.Suffix,
		Source:  def.SourceURL,
	}
	if u.Count() == 0 {
		return nil, fmt.Errorf("universe %s: %w", def.ID, contracts.ErrNoData)
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, key, u, redis.TTLShort); err != nil {
			l.logger.WithError(err).Warn("Universe cache write failed")
		}
	}

	l.logger.WithFields(map[string]interface{}{
		"universe": u.ID,
		"symbols":  u.Count(),
		"format":   def.Format,
	}).Info("Universe loaded")

	return u, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.httpClient.GetBody(ctx, source)
	}
	return os.ReadFile(source)
}
