package vsphere

import (
	"fmt"

	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
)

func (s *Source) link(collection string, ref types.ManagedObjectReference) string {
	return fmt.Sprintf("%s/%s/%s", s.cfg.Provider.SelfLink, collection, ref.Value)
}

func (s *Source) node(kind inventory.TreeKind, collection, name string, ref types.ManagedObjectReference) *inventory.Tree {
	return &inventory.Tree{
		Kind:   kind,
		Object: &inventory.CommonObject{ID: ref.Value, Name: name, SelfLink: s.link(collection, ref)},
	}
}

func (s *Source) vmNode(vm mo.VirtualMachine) *inventory.Tree {
	return s.node(inventory.KindVM, "vms", vm.Name, vm.Self)
}

// hostTree shapes the inventory as datacenter / folder / cluster / host / VM.
// Datacenter host folders are hidden and standalone compute resources are
// replaced by their host.
func (s *Source) hostTree(snap *snapshot) *inventory.Tree {
	vmsByHost := make(map[string][]mo.VirtualMachine)
	for _, vm := range snap.vms {
		if vm.Runtime.Host != nil {
			vmsByHost[vm.Runtime.Host.Value] = append(vmsByHost[vm.Runtime.Host.Value], vm)
		}
	}
	hostNode := func(ref types.ManagedObjectReference) *inventory.Tree {
		n := s.node(inventory.KindHost, "hosts", snap.hosts[ref.Value].Name, ref)
		for _, vm := range vmsByHost[ref.Value] {
			n.Children = append(n.Children, s.vmNode(vm))
		}
		return n
	}

	var walk func(refs []types.ManagedObjectReference) []*inventory.Tree
	walk = func(refs []types.ManagedObjectReference) []*inventory.Tree {
		var nodes []*inventory.Tree
		for _, ref := range refs {
			switch ref.Type {
			case "Folder":
				f, ok := snap.folders[ref.Value]
				if !ok {
					continue
				}
				n := s.node(inventory.KindFolder, "folders", f.Name, ref)
				n.Children = walk(f.ChildEntity)
				nodes = append(nodes, n)
			case "ClusterComputeResource":
				cr, ok := snap.computes[ref.Value]
				if !ok {
					continue
				}
				n := s.node(inventory.KindCluster, "clusters", cr.Name, ref)
				for _, h := range cr.Host {
					n.Children = append(n.Children, hostNode(h))
				}
				nodes = append(nodes, n)
			case "ComputeResource":
				for _, h := range snap.computes[ref.Value].Host {
					nodes = append(nodes, hostNode(h))
				}
			}
		}
		return nodes
	}

	root := &inventory.Tree{}
	for _, dc := range snap.datacenters {
		n := s.node(inventory.KindDatacenter, "datacenters", dc.Name, dc.Self)
		if f, ok := snap.folders[dc.HostFolder.Value]; ok {
			n.Children = walk(f.ChildEntity)
		}
		root.Children = append(root.Children, n)
	}
	return root
}

// vmTree shapes the inventory as datacenter / VM folders / VM, hiding each
// datacenter's root VM folder.
func (s *Source) vmTree(snap *snapshot) *inventory.Tree {
	vms := make(map[string]mo.VirtualMachine, len(snap.vms))
	for _, vm := range snap.vms {
		vms[vm.Self.Value] = vm
	}

	var walk func(refs []types.ManagedObjectReference) []*inventory.Tree
	walk = func(refs []types.ManagedObjectReference) []*inventory.Tree {
		var nodes []*inventory.Tree
		for _, ref := range refs {
			switch ref.Type {
			case "Folder":
				f, ok := snap.folders[ref.Value]
				if !ok {
					continue
				}
				n := s.node(inventory.KindFolder, "folders", f.Name, ref)
				n.Children = walk(f.ChildEntity)
				nodes = append(nodes, n)
			case "VirtualMachine":
				if vm, ok := vms[ref.Value]; ok {
					nodes = append(nodes, s.vmNode(vm))
				}
			}
		}
		return nodes
	}

	root := &inventory.Tree{}
	for _, dc := range snap.datacenters {
		n := s.node(inventory.KindDatacenter, "datacenters", dc.Name, dc.Self)
		if f, ok := snap.folders[dc.VmFolder.Value]; ok {
			n.Children = walk(f.ChildEntity)
		}
		root.Children = append(root.Children, n)
	}
	return root
}

func (s *Source) convertVM(vm mo.VirtualMachine) inventory.VM {
	out := inventory.VM{
		ID:         vm.Self.Value,
		Name:       vm.Name,
		SelfLink:   s.link("vms", vm.Self),
		PowerState: string(vm.Runtime.PowerState),
		Networks:   []inventory.Ref{},
		Disks:      []inventory.Disk{},
		Concerns:   []inventory.Concern{},
	}
	if vm.Runtime.Host != nil {
		out.Host = vm.Runtime.Host.Value
	}
	for _, n := range vm.Network {
		out.Networks = append(out.Networks, inventory.Ref{ID: n.Value})
	}
	if vm.Config != nil {
		out.UUID = vm.Config.Uuid
		for _, device := range vm.Config.Hardware.Device {
			disk, ok := device.(*types.VirtualDisk)
			if !ok {
				continue
			}
			d := inventory.Disk{Key: disk.Key, Capacity: disk.CapacityInBytes}
			if backing, ok := disk.Backing.(types.BaseVirtualDeviceFileBackingInfo); ok {
				info := backing.GetVirtualDeviceFileBackingInfo()
				d.File = info.FileName
				if info.Datastore != nil {
					d.Datastore = inventory.Ref{ID: info.Datastore.Value}
				}
			}
			out.Disks = append(out.Disks, d)
		}
	}
	out.Concerns = vmConcerns(vm)
	return out
}

// vmConcerns reports what can be told from vCenter alone, without a
// validation service.
func vmConcerns(vm mo.VirtualMachine) []inventory.Concern {
	concerns := []inventory.Concern{}
	if vm.Snapshot != nil && vm.Snapshot.CurrentSnapshot != nil {
		concerns = append(concerns, inventory.Concern{
			Severity: inventory.SeverityWarning,
			Name:     "VM snapshot detected",
			Category: "Warning",
		})
	}
	if vm.Config != nil && (vm.Config.ChangeTrackingEnabled == nil || !*vm.Config.ChangeTrackingEnabled) {
		concerns = append(concerns, inventory.Concern{
			Severity: inventory.SeverityAdvisory,
			Name:     "Changed Block Tracking (CBT) not enabled",
			Category: "Information",
		})
	}
	return concerns
}

func (s *Source) convertHost(h mo.HostSystem) inventory.Host {
	out := inventory.Host{
		ID:                 h.Self.Value,
		Name:               h.Name,
		SelfLink:           s.link("hosts", h.Self),
		ManagementServerIP: h.Summary.ManagementServerIp,
		NetworkAdapters:    []inventory.HostNetworkAdapter{},
	}
	if h.Config == nil || h.Config.Network == nil {
		return out
	}
	var linkSpeed int
	for _, pnic := range h.Config.Network.Pnic {
		if pnic.LinkSpeed != nil {
			linkSpeed = int(pnic.LinkSpeed.SpeedMb)
			break
		}
	}
	for _, vnic := range h.Config.Network.Vnic {
		adapter := inventory.HostNetworkAdapter{Name: vnic.Portgroup, LinkSpeed: linkSpeed}
		if adapter.Name == "" {
			adapter.Name = vnic.Device
		}
		if vnic.Spec.Ip != nil {
			adapter.IPAddress = vnic.Spec.Ip.IpAddress
		}
		adapter.MTU = int(vnic.Spec.Mtu)
		out.NetworkAdapters = append(out.NetworkAdapters, adapter)
	}
	return out
}
