package factory

import (
	"fmt"
	"sort"

	"FirepowerKit/internal/config"
	"FirepowerKit/internal/model"

	log "github.com/sirupsen/logrus"
)

// WriterFactory builds a writer from its config entry.
type WriterFactory func(def config.WriterDef) (model.Writer, error)

// registry holds the mapping of writer types to their factory functions.
var registry = make(map[string]WriterFactory)

// RegisterWriter registers a new writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// Registered lists the known writer types.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds a writer for every definition. Writers created before a
// failure are closed.
func Create(defs []config.WriterDef) ([]model.Writer, error) {
	var writers []model.Writer

	for _, def := range defs {
		log.Debugf("Creating writer of type '%s'", def.Type)

		factory, ok := registry[def.Type]
		if !ok {
			closeAll(writers)
			return nil, fmt.Errorf("unknown writer type: '%s' (known: %v)", def.Type, Registered())
		}

		w, err := factory(def)
		if err != nil {
			closeAll(writers)
			return nil, fmt.Errorf("error creating writer type '%s': %w", def.Type, err)
		}
		writers = append(writers, w)
	}

	return writers, nil
}

func closeAll(writers []model.Writer) {
	for _, w := range writers {
		if err := w.Close(); err != nil {
			log.Warnf("Failed to close writer %s: %v", w.Name(), err)
		}
	}
}
