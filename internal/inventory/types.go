package inventory

import "strings"

// TreeKind discriminates the nodes of a VMware inventory tree.
type TreeKind string

const (
	KindDatacenter TreeKind = "Datacenter"
	KindCluster    TreeKind = "Cluster"
	KindHost       TreeKind = "Host"
	KindFolder     TreeKind = "Folder"
	KindVM         TreeKind = "VM"
)

// TreeType selects one of the two hierarchies the inventory exposes over the
// same objects: hosts (datacenter/cluster/host) or VM folders.
type TreeType string

const (
	TreeTypeHost TreeType = "Host"
	TreeTypeVM   TreeType = "VM"
)

// Path returns the inventory URL segment for the tree type.
func (t TreeType) Path() string {
	if t == TreeTypeVM {
		return "vm"
	}
	return "host"
}

// ParseTreeType accepts "host"/"vm" in any case. Unknown values fall back to Host.
func ParseTreeType(s string) TreeType {
	if strings.EqualFold(s, string(TreeTypeVM)) {
		return TreeTypeVM
	}
	return TreeTypeHost
}

// CommonObject is the part of every inventory object that tree nodes carry.
// SelfLink is unique within one inventory snapshot.
type CommonObject struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string `json:"name" yaml:"name"`
	SelfLink string `json:"selfLink" yaml:"selfLink"`
}

// Tree is one node of a VMware inventory tree. Each node owns its children;
// VM nodes never have children.
type Tree struct {
	Kind     TreeKind      `json:"kind" yaml:"kind"`
	Object   *CommonObject `json:"object" yaml:"object"`
	Children []*Tree       `json:"children" yaml:"children"`
}

// Name returns the object name, or "" for nodes without an object.
func (t *Tree) Name() string {
	if t == nil || t.Object == nil {
		return ""
	}
	return t.Object.Name
}

// SelfLink returns the object self link, or "" for nodes without an object.
func (t *Tree) SelfLink() string {
	if t == nil || t.Object == nil {
		return ""
	}
	return t.Object.SelfLink
}

// Ref points at another inventory object by id.
type Ref struct {
	ID string `json:"id" yaml:"id"`
}

// Disk is a virtual disk; Datastore references the backing datastore.
type Disk struct {
	Key       int32  `json:"key,omitempty" yaml:"key,omitempty"`
	File      string `json:"file,omitempty" yaml:"file,omitempty"`
	Capacity  int64  `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	Datastore Ref    `json:"datastore" yaml:"datastore"`
}

// Severity of a VM migration concern.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityWarning  Severity = "Warning"
	SeverityAdvisory Severity = "Advisory"
)

// Concern is a validation finding attached to a VM by the inventory service.
type Concern struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Name     string   `json:"name" yaml:"name"`
	Category string   `json:"category,omitempty" yaml:"category,omitempty"`
}

// VM is a virtual machine as returned by the detailed VM listing.
type VM struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	SelfLink   string    `json:"selfLink" yaml:"selfLink"`
	UUID       string    `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	PowerState string    `json:"powerState,omitempty" yaml:"powerState,omitempty"`
	Host       string    `json:"host,omitempty" yaml:"host,omitempty"`
	Networks   []Ref     `json:"networks" yaml:"networks"`
	Disks      []Disk    `json:"disks" yaml:"disks"`
	Concerns   []Concern `json:"concerns" yaml:"concerns"`
}

// ProviderType is the kind of a migration provider.
type ProviderType string

const (
	ProviderVSphere   ProviderType = "vsphere"
	ProviderOpenShift ProviderType = "openshift"
)

// Provider is a migration provider as seen by the inventory service.
type Provider struct {
	UID       string       `json:"uid" yaml:"uid"`
	Namespace string       `json:"namespace" yaml:"namespace"`
	Name      string       `json:"name" yaml:"name"`
	Type      ProviderType `json:"type" yaml:"type"`
	SelfLink  string       `json:"selfLink" yaml:"selfLink"`
	VMCount   int          `json:"vmCount,omitempty" yaml:"vmCount,omitempty"`
	HostCount int          `json:"hostCount,omitempty" yaml:"hostCount,omitempty"`
}

// Providers groups inventory providers by type, as the /providers endpoint does.
type Providers map[ProviderType][]Provider

// Find returns the provider with the given name and namespace, or nil.
func (p Providers) Find(name, namespace string) *Provider {
	for _, list := range p {
		for i := range list {
			if list[i].Name == name && list[i].Namespace == namespace {
				return &list[i]
			}
		}
	}
	return nil
}

// Network is a source (vSphere) network.
type Network struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	SelfLink string `json:"selfLink" yaml:"selfLink"`
}

// Datastore is a source (vSphere) datastore.
type Datastore struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	SelfLink string `json:"selfLink" yaml:"selfLink"`
}

// NetworkAttachmentDefinition is a target (multus) network.
type NetworkAttachmentDefinition struct {
	UID       string `json:"uid" yaml:"uid"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Name      string `json:"name" yaml:"name"`
	SelfLink  string `json:"selfLink" yaml:"selfLink"`
}

// StorageClass is a target storage class.
type StorageClass struct {
	UID       string `json:"uid" yaml:"uid"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Name      string `json:"name" yaml:"name"`
	SelfLink  string `json:"selfLink" yaml:"selfLink"`
}

// HostNetworkAdapter is one adapter of an ESXi host.
type HostNetworkAdapter struct {
	Name      string `json:"name" yaml:"name"`
	IPAddress string `json:"ipAddress" yaml:"ipAddress"`
	LinkSpeed int    `json:"linkSpeed,omitempty" yaml:"linkSpeed,omitempty"`
	MTU       int    `json:"mtu,omitempty" yaml:"mtu,omitempty"`
}

// Host is an ESXi host with its network adapters.
type Host struct {
	ID                 string               `json:"id" yaml:"id"`
	Name               string               `json:"name" yaml:"name"`
	SelfLink           string               `json:"selfLink" yaml:"selfLink"`
	ManagementServerIP string               `json:"managementServerIp,omitempty" yaml:"managementServerIp,omitempty"`
	NetworkAdapters    []HostNetworkAdapter `json:"networkAdapters" yaml:"networkAdapters"`
}
