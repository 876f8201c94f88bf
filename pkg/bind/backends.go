package bind

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapbind/pkg/spi"
)

// Settings are backend-specific options, keyed by option name.
type Settings map[string]any

// TechnologyFactory creates a rendering capability.
type TechnologyFactory func(settings Settings, logger *slog.Logger) (spi.Technology, error)

// TransportFactory creates a transport capability.
type TransportFactory func(settings Settings, logger *slog.Logger) (spi.Transport, error)

var (
	backendsMu   sync.RWMutex
	technologies = make(map[string]TechnologyFactory)
	transports   = make(map[string]TransportFactory)
)

// RegisterTechnology adds a rendering backend factory.
// Called by backend implementations in their init() functions.
func RegisterTechnology(name string, factory TechnologyFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	technologies[name] = factory
}

// RegisterTransport adds a transport backend factory.
// Called by backend implementations in their init() functions.
func RegisterTransport(name string, factory TransportFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	transports[name] = factory
}

// ListTechnologies returns all registered rendering backend names (sorted).
func ListTechnologies() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	return sortedKeys(technologies)
}

// ListTransports returns all registered transport backend names (sorted).
func ListTransports() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	return sortedKeys(transports)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Selection names the backends to combine. Empty names mean "any".
type Selection struct {
	Technology string
	Transport  string

	// Settings holds per-backend options keyed by backend name.
	Settings map[string]Settings

	Logger *slog.Logger
}

// NewContext resolves a rendering/transport pair from the registry and
// builds a Context. Candidates are tried in sorted name order and the
// first pair whose factories both succeed is used.
func NewContext(sel Selection) (*Context, error) {
	logger := sel.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	backendsMu.RLock()
	techNames := candidates(technologies, sel.Technology)
	transportNames := candidates(transports, sel.Transport)
	techFactories := make([]TechnologyFactory, len(techNames))
	for i, name := range techNames {
		techFactories[i] = technologies[name]
	}
	transportFactories := make([]TransportFactory, len(transportNames))
	for i, name := range transportNames {
		transportFactories[i] = transports[name]
	}
	backendsMu.RUnlock()

	var causes []error
	for i, techName := range techNames {
		tech, err := techFactories[i](sel.Settings[techName], logger.With("backend", techName))
		if err != nil {
			causes = append(causes, fmt.Errorf("technology %s: %w", techName, err))
			continue
		}
		for j, transportName := range transportNames {
			tr, err := transportFactories[j](sel.Settings[transportName], logger.With("backend", transportName))
			if err != nil {
				causes = append(causes, fmt.Errorf("transport %s: %w", transportName, err))
				continue
			}
			logger.Debug("backend pair resolved", "technology", techName, "transport", transportName)
			return NewBuilder().
				WithTechnology(techName, tech).
				WithTransport(transportName, tr).
				WithLogger(logger).
				Build()
		}
	}

	return nil, &LookupError{
		Technology:            sel.Technology,
		Transport:             sel.Transport,
		AvailableTechnologies: ListTechnologies(),
		AvailableTransports:   ListTransports(),
		Causes:                causes,
	}
}

// candidates returns the requested name if registered, or every name when
// nothing was requested.
func candidates[V any](m map[string]V, want string) []string {
	if want == "" {
		return sortedKeys(m)
	}
	if _, ok := m[want]; ok {
		return []string{want}
	}
	return nil
}
