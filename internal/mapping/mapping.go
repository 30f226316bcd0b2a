// Package mapping converts between the source/target pairs a user edits in
// the plan wizard ("builder items") and the persisted network and storage
// mapping resources.
package mapping

import (
	"strings"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/kube"
)

// Type is the kind of mapping.
type Type string

const (
	Network Type = "Network"
	Storage Type = "Storage"
)

// ParseType accepts "network" or "storage" in any case.
func ParseType(s string) (Type, bool) {
	switch {
	case strings.EqualFold(s, string(Network)):
		return Network, true
	case strings.EqualFold(s, string(Storage)):
		return Storage, true
	}
	return "", false
}

// Source is a vSphere network or datastore that can be mapped.
type Source struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SelfLink string `json:"selfLink"`
}

// Target is the pod network, a network attachment definition or a storage class.
type Target struct {
	Type      string `json:"type,omitempty"`
	UID       string `json:"uid,omitempty"`
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
	SelfLink  string `json:"selfLink,omitempty"`
}

// PodNetwork is the target for VMs that should use the pod network.
var PodNetwork = Target{Type: kube.NetworkTypePod, Name: "Pod network"}

// BuilderItem is one pending source to target pair. Either side may be unset
// while the user is editing.
type BuilderItem struct {
	Source    *Source `json:"source"`
	Target    *Target `json:"target"`
	Highlight bool    `json:"highlight"`
}

// Resources are the sources and targets available for one mapping type.
type Resources struct {
	Type    Type     `json:"type"`
	Sources []Source `json:"sources"`
	Targets []Target `json:"targets"`
}

func NetworkSources(networks []inventory.Network) []Source {
	sources := make([]Source, 0, len(networks))
	for _, n := range networks {
		sources = append(sources, Source{ID: n.ID, Name: n.Name, SelfLink: n.SelfLink})
	}
	return sources
}

func DatastoreSources(datastores []inventory.Datastore) []Source {
	sources := make([]Source, 0, len(datastores))
	for _, d := range datastores {
		sources = append(sources, Source{ID: d.ID, Name: d.Name, SelfLink: d.SelfLink})
	}
	return sources
}

// NetworkTargets returns the pod network followed by the given network
// attachment definitions.
func NetworkTargets(nads []inventory.NetworkAttachmentDefinition) []Target {
	targets := make([]Target, 0, len(nads)+1)
	targets = append(targets, PodNetwork)
	for _, n := range nads {
		targets = append(targets, Target{
			Type:      kube.NetworkTypeMultus,
			UID:       n.UID,
			Name:      n.Name,
			Namespace: n.Namespace,
			SelfLink:  n.SelfLink,
		})
	}
	return targets
}

func StorageTargets(classes []inventory.StorageClass) []Target {
	targets := make([]Target, 0, len(classes))
	for _, sc := range classes {
		targets = append(targets, Target{UID: sc.UID, Name: sc.Name, SelfLink: sc.SelfLink})
	}
	return targets
}

// ProviderPair references two inventory providers by name and namespace.
func ProviderPair(source, destination *inventory.Provider) kube.ProviderPair {
	return kube.ProviderPair{Source: nameAndNamespace(source), Destination: nameAndNamespace(destination)}
}

func nameAndNamespace(p *inventory.Provider) kube.ObjectRef {
	if p == nil {
		return kube.ObjectRef{}
	}
	return kube.ObjectRef{Name: p.Name, Namespace: p.Namespace}
}

func complete(items []BuilderItem) []BuilderItem {
	var out []BuilderItem
	for _, item := range items {
		if item.Source != nil && item.Target != nil {
			out = append(out, item)
		}
	}
	return out
}

func networkDestination(t *Target) kube.NetworkDestination {
	if t.Type == kube.NetworkTypePod {
		return kube.NetworkDestination{Type: kube.NetworkTypePod}
	}
	return kube.NetworkDestination{Type: kube.NetworkTypeMultus, Name: t.Name, Namespace: t.Namespace}
}

// NetworkPairs converts builder items to persisted pairs, skipping items
// with an unset source or target.
func NetworkPairs(items []BuilderItem) []kube.NetworkPair {
	pairs := []kube.NetworkPair{}
	for _, item := range complete(items) {
		pairs = append(pairs, kube.NetworkPair{
			Source:      kube.SourceRef{ID: item.Source.ID},
			Destination: networkDestination(item.Target),
		})
	}
	return pairs
}

func StoragePairs(items []BuilderItem) []kube.StoragePair {
	pairs := []kube.StoragePair{}
	for _, item := range complete(items) {
		pairs = append(pairs, kube.StoragePair{
			Source:      kube.SourceRef{ID: item.Source.ID},
			Destination: kube.StorageDestination{StorageClass: item.Target.Name},
		})
	}
	return pairs
}

// NetworkMapFromBuilderItems builds a network mapping resource.
func NetworkMapFromBuilderItems(name, namespace string, source, destination *inventory.Provider, items []BuilderItem) *kube.NetworkMap {
	m := kube.NewNetworkMap(name, namespace)
	m.Spec.Provider = ProviderPair(source, destination)
	m.Spec.Map = NetworkPairs(items)
	return m
}

// StorageMapFromBuilderItems builds a storage mapping resource.
func StorageMapFromBuilderItems(name, namespace string, source, destination *inventory.Provider, items []BuilderItem) *kube.StorageMap {
	m := kube.NewStorageMap(name, namespace)
	m.Spec.Provider = ProviderPair(source, destination)
	m.Spec.Map = StoragePairs(items)
	return m
}

func findSource(sources []Source, id string) *Source {
	for i := range sources {
		if sources[i].ID == id {
			s := sources[i]
			return &s
		}
	}
	return nil
}

func findTarget(targets []Target, match func(Target) bool) *Target {
	for i := range targets {
		if match(targets[i]) {
			t := targets[i]
			return &t
		}
	}
	return nil
}

// BuilderItemsFromNetworkPairs resolves persisted pairs against the available
// resources. Pairs whose source or destination cannot be resolved are dropped.
func BuilderItemsFromNetworkPairs(pairs []kube.NetworkPair, res Resources) []BuilderItem {
	items := []BuilderItem{}
	for _, pair := range pairs {
		source := findSource(res.Sources, pair.Source.ID)
		dest := pair.Destination
		var target *Target
		if dest.Type == kube.NetworkTypePod {
			pod := PodNetwork
			target = &pod
		} else {
			target = findTarget(res.Targets, func(t Target) bool {
				return t.Type == kube.NetworkTypeMultus && t.Name == dest.Name && t.Namespace == dest.Namespace
			})
		}
		if source != nil && target != nil {
			items = append(items, BuilderItem{Source: source, Target: target})
		}
	}
	return items
}

func BuilderItemsFromStoragePairs(pairs []kube.StoragePair, res Resources) []BuilderItem {
	items := []BuilderItem{}
	for _, pair := range pairs {
		source := findSource(res.Sources, pair.Source.ID)
		class := pair.Destination.StorageClass
		target := findTarget(res.Targets, func(t Target) bool { return t.Name == class })
		if source != nil && target != nil {
			items = append(items, BuilderItem{Source: source, Target: target})
		}
	}
	return items
}

// requiredSourceIDs returns the ids of the networks or datastores the VMs use.
func requiredSourceIDs(vms []inventory.VM, t Type) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, vm := range vms {
		switch t {
		case Network:
			for _, n := range vm.Networks {
				ids[n.ID] = struct{}{}
			}
		case Storage:
			for _, d := range vm.Disks {
				ids[d.Datastore.ID] = struct{}{}
			}
		}
	}
	return ids
}

// FilterSourcesBySelectedVMs keeps the sources referenced by the networks
// (Network) or disk datastores (Storage) of the selected VMs.
func FilterSourcesBySelectedVMs(sources []Source, vms []inventory.VM, t Type) []Source {
	ids := requiredSourceIDs(vms, t)
	out := []Source{}
	for _, s := range sources {
		if _, ok := ids[s.ID]; ok {
			out = append(out, s)
		}
	}
	return out
}

// BuilderItemsWithMissingSources appends an item with no target for every
// source the selected VMs need that items does not already cover.
func BuilderItemsWithMissingSources(items []BuilderItem, res Resources, vms []inventory.VM, t Type, highlight bool) []BuilderItem {
	covered := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.Source != nil {
			covered[item.Source.ID] = struct{}{}
		}
	}
	out := append([]BuilderItem{}, items...)
	for _, source := range FilterSourcesBySelectedVMs(res.Sources, vms, t) {
		if _, ok := covered[source.ID]; ok {
			continue
		}
		s := source
		out = append(out, BuilderItem{Source: &s, Highlight: highlight})
	}
	return out
}
