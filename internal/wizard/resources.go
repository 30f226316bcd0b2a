package wizard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/mapping"
)

// LoadMappingResources fetches the sources of the given mapping type from the
// source provider and its targets from the target provider.
func LoadMappingResources(ctx context.Context, src inventory.Source, source, target *inventory.Provider, t mapping.Type) (mapping.Resources, error) {
	res := mapping.Resources{Type: t}
	if source == nil || target == nil {
		return res, errors.Wrap(ErrInvalid, "source and target providers must be chosen first")
	}
	switch t {
	case mapping.Network:
		networks, err := src.Networks(ctx, source)
		if err != nil {
			return res, err
		}
		nads, err := src.NetworkAttachmentDefinitions(ctx, target)
		if err != nil {
			return res, err
		}
		res.Sources = mapping.NetworkSources(networks)
		res.Targets = mapping.NetworkTargets(nads)
	case mapping.Storage:
		datastores, err := src.Datastores(ctx, source)
		if err != nil {
			return res, err
		}
		classes, err := src.StorageClasses(ctx, target)
		if err != nil {
			return res, err
		}
		res.Sources = mapping.DatastoreSources(datastores)
		res.Targets = mapping.StorageTargets(classes)
	}
	return res, nil
}
