// Package vsphere builds the VMware side of the inventory (VMs, host and VM
// trees, networks, datastores, hosts) directly from a vCenter.
package vsphere

import (
	"context"
	"net/url"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
)

// Config holds vCenter access and the provider the inventory is reported under.
type Config struct {
	URL      string
	Username string
	Password string
	Insecure bool
	Provider inventory.Provider
}

// Source is an inventory.Source for one vCenter. Each call opens its own
// session and logs out when done.
type Source struct {
	cfg Config
	log logrus.FieldLogger
}

var _ inventory.Source = (*Source)(nil)

// New validates cfg and returns a Source.
func New(cfg Config, log logrus.FieldLogger) (*Source, error) {
	if cfg.URL == "" {
		return nil, errors.New("vcenter url is required")
	}
	if _, err := soap.ParseURL(cfg.URL); err != nil {
		return nil, errors.Wrap(err, "parsing vcenter url")
	}
	cfg.Provider.Type = inventory.ProviderVSphere
	if cfg.Provider.SelfLink == "" {
		cfg.Provider.SelfLink = "/providers/vsphere/" + cfg.Provider.UID
	}
	return &Source{cfg: cfg, log: log}, nil
}

func (s *Source) withView(ctx context.Context, fn func(*view.ContainerView) error) error {
	u, err := soap.ParseURL(s.cfg.URL)
	if err != nil {
		return errors.Wrap(err, "parsing vcenter url")
	}
	u.User = url.UserPassword(s.cfg.Username, s.cfg.Password)

	s.log.WithField("url", u.Host).Debug("connecting to vCenter")
	client, err := govmomi.NewClient(ctx, u, s.cfg.Insecure)
	if err != nil {
		return errors.Wrap(err, "connecting to vCenter")
	}
	defer client.Logout(context.Background())

	m := view.NewManager(client.Client)
	v, err := m.CreateContainerView(ctx, client.ServiceContent.RootFolder, nil, true)
	if err != nil {
		return errors.Wrap(err, "creating container view")
	}
	defer v.Destroy(context.Background())
	return fn(v)
}

type referencer interface {
	Reference() types.ManagedObjectReference
}

func byRef[T referencer](items []T) map[string]T {
	m := make(map[string]T, len(items))
	for _, item := range items {
		m[item.Reference().Value] = item
	}
	return m
}

// snapshot is the subset of the vCenter inventory one call needs.
type snapshot struct {
	datacenters []mo.Datacenter
	folders     map[string]mo.Folder
	computes    map[string]mo.ComputeResource
	hosts       map[string]mo.HostSystem
	vms         []mo.VirtualMachine
}

var vmProperties = []string{
	"name",
	"config.uuid",
	"config.changeTrackingEnabled",
	"config.hardware.device",
	"runtime.host",
	"runtime.powerState",
	"network",
	"snapshot",
}

func (s *Source) retrieveVMs(ctx context.Context, v *view.ContainerView) ([]mo.VirtualMachine, error) {
	var vms []mo.VirtualMachine
	if err := v.Retrieve(ctx, []string{"VirtualMachine"}, vmProperties, &vms); err != nil {
		return nil, errors.Wrap(err, "retrieving virtual machines")
	}
	sort.Slice(vms, func(i, j int) bool { return vms[i].Name < vms[j].Name })
	return vms, nil
}

func (s *Source) snapshot(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{}
	err := s.withView(ctx, func(v *view.ContainerView) error {
		if err := v.Retrieve(ctx, []string{"Datacenter"}, []string{"name", "hostFolder", "vmFolder"}, &snap.datacenters); err != nil {
			return errors.Wrap(err, "retrieving datacenters")
		}
		var folders []mo.Folder
		if err := v.Retrieve(ctx, []string{"Folder"}, []string{"name", "childEntity"}, &folders); err != nil {
			return errors.Wrap(err, "retrieving folders")
		}
		var computes []mo.ComputeResource
		if err := v.Retrieve(ctx, []string{"ComputeResource"}, []string{"name", "host"}, &computes); err != nil {
			return errors.Wrap(err, "retrieving compute resources")
		}
		var hosts []mo.HostSystem
		if err := v.Retrieve(ctx, []string{"HostSystem"}, []string{"name"}, &hosts); err != nil {
			return errors.Wrap(err, "retrieving hosts")
		}
		vms, err := s.retrieveVMs(ctx, v)
		if err != nil {
			return err
		}
		snap.folders = byRef(folders)
		snap.computes = byRef(computes)
		snap.hosts = byRef(hosts)
		snap.vms = vms
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(snap.datacenters, func(i, j int) bool { return snap.datacenters[i].Name < snap.datacenters[j].Name })
	return snap, nil
}

func (s *Source) Providers(context.Context) (inventory.Providers, error) {
	return inventory.Providers{inventory.ProviderVSphere: {s.cfg.Provider}}, nil
}

func (s *Source) VMs(ctx context.Context, _ *inventory.Provider) ([]inventory.VM, error) {
	var vms []mo.VirtualMachine
	err := s.withView(ctx, func(v *view.ContainerView) error {
		var err error
		vms, err = s.retrieveVMs(ctx, v)
		return err
	})
	if err != nil {
		return nil, err
	}
	result := make([]inventory.VM, 0, len(vms))
	for _, vm := range vms {
		result = append(result, s.convertVM(vm))
	}
	return result, nil
}

func (s *Source) Tree(ctx context.Context, _ *inventory.Provider, treeType inventory.TreeType) (*inventory.Tree, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if treeType == inventory.TreeTypeVM {
		return s.vmTree(snap), nil
	}
	return s.hostTree(snap), nil
}

func (s *Source) Networks(ctx context.Context, _ *inventory.Provider) ([]inventory.Network, error) {
	var networks []mo.Network
	err := s.withView(ctx, func(v *view.ContainerView) error {
		return errors.Wrap(v.Retrieve(ctx, []string{"Network"}, []string{"name"}, &networks), "retrieving networks")
	})
	if err != nil {
		return nil, err
	}
	result := make([]inventory.Network, 0, len(networks))
	for _, n := range networks {
		result = append(result, inventory.Network{ID: n.Self.Value, Name: n.Name, SelfLink: s.link("networks", n.Self)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Source) Datastores(ctx context.Context, _ *inventory.Provider) ([]inventory.Datastore, error) {
	var datastores []mo.Datastore
	err := s.withView(ctx, func(v *view.ContainerView) error {
		return errors.Wrap(v.Retrieve(ctx, []string{"Datastore"}, []string{"name"}, &datastores), "retrieving datastores")
	})
	if err != nil {
		return nil, err
	}
	result := make([]inventory.Datastore, 0, len(datastores))
	for _, d := range datastores {
		result = append(result, inventory.Datastore{ID: d.Self.Value, Name: d.Name, SelfLink: s.link("datastores", d.Self)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Source) Hosts(ctx context.Context, _ *inventory.Provider) ([]inventory.Host, error) {
	var hosts []mo.HostSystem
	err := s.withView(ctx, func(v *view.ContainerView) error {
		ps := []string{"name", "summary.managementServerIp", "config.network.vnic", "config.network.pnic"}
		return errors.Wrap(v.Retrieve(ctx, []string{"HostSystem"}, ps, &hosts), "retrieving hosts")
	})
	if err != nil {
		return nil, err
	}
	result := make([]inventory.Host, 0, len(hosts))
	for _, h := range hosts {
		result = append(result, s.convertHost(h))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Source) NetworkAttachmentDefinitions(context.Context, *inventory.Provider) ([]inventory.NetworkAttachmentDefinition, error) {
	return nil, inventory.ErrUnsupported
}

func (s *Source) StorageClasses(context.Context, *inventory.Provider) ([]inventory.StorageClass, error) {
	return nil, inventory.ErrUnsupported
}
