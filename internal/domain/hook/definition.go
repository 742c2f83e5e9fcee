package hook

import (
	"log/slog"
	"time"

	"github.com/mcphook/proxy/internal/observability"
)

// RemoteSpec names a remote hook entry as it appears in configuration:
// an endpoint URL and an optional display name.
type RemoteSpec struct {
	URL  string
	Name string
}

// Definition is the configuration-time tagged union of the two hook
// variants: an in-process Hook instance, or a remote endpoint to be
// wrapped in a RemoteHookClient. Exactly one of Local/Remote is set.
type Definition struct {
	Local  Hook
	Remote *RemoteSpec
}

// LocalDefinition wraps an in-process hook as a Definition.
func LocalDefinition(h Hook) Definition {
	return Definition{Local: h}
}

// RemoteDefinition wraps a remote hook entry as a Definition.
func RemoteDefinition(url, name string) Definition {
	return Definition{Remote: &RemoteSpec{URL: url, Name: name}}
}

// Build resolves a Definition into the runtime Hook the chain engine will
// call: a Local definition is returned as-is, a Remote definition is
// wrapped in a RemoteHookClient bound to timeout and logger. obs may be
// nil; a nil Instrumentation leaves the remote hook's call behavior
// unchanged.
func Build(def Definition, timeout time.Duration, cacheNotImplemented bool, logger *slog.Logger, obs *observability.Instrumentation) Hook {
	if def.Local != nil {
		return def.Local
	}
	name := def.Remote.Name
	if name == "" {
		name = def.Remote.URL
	}
	return NewRemoteHookClient(name, def.Remote.URL, timeout, logger,
		WithNotImplementedCache(cacheNotImplemented), WithInstrumentation(obs))
}

// BuildChain resolves an ordered list of Definitions into the Hook slice
// the chain engine runs. Order is preserved; it is the stable index used
// throughout the chain's invariants.
func BuildChain(defs []Definition, timeout time.Duration, cacheNotImplemented bool, logger *slog.Logger, obs *observability.Instrumentation) []Hook {
	hooks := make([]Hook, 0, len(defs))
	for _, def := range defs {
		hooks = append(hooks, Build(def, timeout, cacheNotImplemented, logger, obs))
	}
	return hooks
}
