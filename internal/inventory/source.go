package inventory

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned by a Source for resources its providers do not have.
var ErrUnsupported = errors.New("not supported by this inventory source")

// Source is read-only access to provider inventories. Source-side calls
// (VMs, trees, networks, datastores, hosts) take a vSphere provider;
// target-side calls take an OpenShift provider.
type Source interface {
	Providers(ctx context.Context) (Providers, error)
	VMs(ctx context.Context, p *Provider) ([]VM, error)
	Tree(ctx context.Context, p *Provider, treeType TreeType) (*Tree, error)
	Networks(ctx context.Context, p *Provider) ([]Network, error)
	Datastores(ctx context.Context, p *Provider) ([]Datastore, error)
	Hosts(ctx context.Context, p *Provider) ([]Host, error)
	NetworkAttachmentDefinitions(ctx context.Context, p *Provider) ([]NetworkAttachmentDefinition, error)
	StorageClasses(ctx context.Context, p *Provider) ([]StorageClass, error)
}

// Router dispatches each call to the Source registered for the provider type.
// Providers merges the providers each source reports for its own type.
type Router struct {
	sources map[ProviderType]Source
}

// NewRouter returns a Router over the given sources.
func NewRouter(sources map[ProviderType]Source) *Router {
	return &Router{sources: sources}
}

func (r *Router) source(p *Provider) (Source, error) {
	if p == nil {
		return nil, errors.New("no provider")
	}
	s, ok := r.sources[p.Type]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "provider type %q", p.Type)
	}
	return s, nil
}

func (r *Router) Providers(ctx context.Context) (Providers, error) {
	types := make([]string, 0, len(r.sources))
	for t := range r.sources {
		types = append(types, string(t))
	}
	sort.Strings(types)

	result := Providers{}
	for _, t := range types {
		pt := ProviderType(t)
		providers, err := r.sources[pt].Providers(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "listing %s providers", t)
		}
		result[pt] = append(result[pt], providers[pt]...)
	}
	return result, nil
}

func (r *Router) VMs(ctx context.Context, p *Provider) ([]VM, error) {
	s, err := r.source(p)
	if err != nil {
		return nil, err
	}
	return s.VMs(ctx, p)
}

func (r *Router) Tree(ctx context.Context, p *Provider, treeType TreeType) (*Tree, error) {
	s, err := r.source(p)
	if err != nil {
		return nil, err
	}
	return s.Tree(ctx, p, treeType)
}

func (r *Router) Networks(ctx context.Context, p *Provider) ([]Network, error) {
	s, err := r.source(p)
	if err != nil {
		return nil, err
	}
	return s.Networks(ctx, p)
}

func (r *Router) Datastores(ctx context.Context, p *Provider) ([]Datastore, error) {
	s, err := r.source(p)
	if err != nil {
		return nil, err
	}
	return s.Datastores(ctx, p)
}

func (r *Router) Hosts(ctx context.Context, p *Provider) ([]Host, error) {
	s, err := r.source(p)
	if err != nil {
		return nil, err
	}
	return s.Hosts(ctx, p)
}

func (r *Router) NetworkAttachmentDefinitions(ctx context.Context, p *Provider) ([]NetworkAttachmentDefinition, error) {
	s, err := r.source(p)
	if err != nil {
		return nil, err
	}
	return s.NetworkAttachmentDefinitions(ctx, p)
}

func (r *Router) StorageClasses(ctx context.Context, p *Provider) ([]StorageClass, error) {
	s, err := r.source(p)
	if err != nil {
		return nil, err
	}
	return s.StorageClasses(ctx, p)
}

// SortVMsByName sorts VMs in place by name.
func SortVMsByName(vms []VM) {
	sort.SliceStable(vms, func(i, j int) bool { return vms[i].Name < vms[j].Name })
}
