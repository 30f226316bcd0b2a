package inventory

import (
	"context"
	_ "embed"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/default.yaml
var defaultFixtures []byte

// ProviderInventory is the mock inventory of one provider.
type ProviderInventory struct {
	VMs                          []VM                          `yaml:"vms"`
	HostTree                     *Tree                         `yaml:"hostTree"`
	VMTree                       *Tree                         `yaml:"vmTree"`
	Networks                     []Network                     `yaml:"networks"`
	Datastores                   []Datastore                   `yaml:"datastores"`
	Hosts                        []Host                        `yaml:"hosts"`
	NetworkAttachmentDefinitions []NetworkAttachmentDefinition `yaml:"networkAttachmentDefinitions"`
	StorageClasses               []StorageClass                `yaml:"storageClasses"`
}

// Fixtures is the data set served in mock mode. Inventories are keyed by
// provider name. Objects are Kubernetes manifests used to seed the fake
// cluster.
type Fixtures struct {
	Providers   Providers                    `yaml:"providers"`
	Inventories map[string]ProviderInventory `yaml:"inventories"`
	Objects     []map[string]interface{}     `yaml:"objects"`
}

// LoadFixtures reads fixtures from path, or the built-in set when path is empty.
func LoadFixtures(path string) (*Fixtures, error) {
	if path == "" {
		return ParseFixtures(defaultFixtures)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	f, err := ParseFixtures(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return f, nil
}

func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decoding fixtures")
	}
	for t, list := range f.Providers {
		for i := range list {
			if list[i].Type == "" {
				list[i].Type = t
			}
		}
	}
	return &f, nil
}

// FixtureSource serves Fixtures as an inventory Source.
type FixtureSource struct {
	fixtures *Fixtures
}

var _ Source = (*FixtureSource)(nil)

func NewFixtureSource(f *Fixtures) *FixtureSource {
	return &FixtureSource{fixtures: f}
}

func (s *FixtureSource) inventory(p *Provider) (ProviderInventory, error) {
	if p == nil {
		return ProviderInventory{}, errors.New("no provider")
	}
	inv, ok := s.fixtures.Inventories[p.Name]
	if !ok {
		return ProviderInventory{}, errors.Errorf("no inventory for provider %s", p.Name)
	}
	return inv, nil
}

func (s *FixtureSource) Providers(context.Context) (Providers, error) {
	result := Providers{}
	for t, list := range s.fixtures.Providers {
		result[t] = append([]Provider{}, list...)
	}
	return result, nil
}

func (s *FixtureSource) VMs(_ context.Context, p *Provider) ([]VM, error) {
	inv, err := s.inventory(p)
	if err != nil {
		return nil, err
	}
	vms := append([]VM{}, inv.VMs...)
	SortVMsByName(vms)
	return vms, nil
}

func (s *FixtureSource) Tree(_ context.Context, p *Provider, treeType TreeType) (*Tree, error) {
	inv, err := s.inventory(p)
	if err != nil {
		return nil, err
	}
	if treeType == TreeTypeVM {
		return inv.VMTree, nil
	}
	return inv.HostTree, nil
}

func (s *FixtureSource) Networks(_ context.Context, p *Provider) ([]Network, error) {
	inv, err := s.inventory(p)
	return inv.Networks, err
}

func (s *FixtureSource) Datastores(_ context.Context, p *Provider) ([]Datastore, error) {
	inv, err := s.inventory(p)
	return inv.Datastores, err
}

func (s *FixtureSource) Hosts(_ context.Context, p *Provider) ([]Host, error) {
	inv, err := s.inventory(p)
	return inv.Hosts, err
}

func (s *FixtureSource) NetworkAttachmentDefinitions(_ context.Context, p *Provider) ([]NetworkAttachmentDefinition, error) {
	inv, err := s.inventory(p)
	return inv.NetworkAttachmentDefinitions, err
}

func (s *FixtureSource) StorageClasses(_ context.Context, p *Provider) ([]StorageClass, error) {
	inv, err := s.inventory(p)
	return inv.StorageClasses, err
}
