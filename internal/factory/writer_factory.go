package factory

import (
	"WindowSpectra/internal/config"
	"WindowSpectra/internal/model"
	"fmt"
	"log"
	"sort"
)

// WriterFactory builds a writer from its definition in the config file.
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

// RegisteredTypes lists the known writer types in sorted order.
func RegisteredTypes() []string {
	types := make([]string, 0, len(registry))
	for name := range registry {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// CreateWriters builds every enabled writer of the config. If any writer fails
// to build, the ones already built are closed and the error is returned.
func CreateWriters(cfg *config.Config) ([]model.Writer, error) {
	var writers []model.Writer

	for _, def := range cfg.Writers {
		if !def.Enabled {
			continue
		}
		log.Printf("Creating writer of type: '%s'", def.Type)

		factory, ok := registry[def.Type]
		if !ok {
			closeAll(writers)
			return nil, fmt.Errorf("unknown writer type: '%s'", def.Type)
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
			log.Printf("Error closing writer %s: %v", w.Name(), err)
		}
	}
}
