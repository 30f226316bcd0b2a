// Package kube reads and writes the migration custom resources (plans,
// mappings, providers, hosts, migrations) and the secrets they reference.
package kube

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	Group      = "forklift.konveyor.io"
	Version    = "v1alpha1"
	APIVersion = Group + "/" + Version

	// DefaultNamespace is where the controller watches for plans.
	DefaultNamespace = "openshift-migration"
)

var (
	PlanGVR       = schema.GroupVersionResource{Group: Group, Version: Version, Resource: "plans"}
	NetworkMapGVR = schema.GroupVersionResource{Group: Group, Version: Version, Resource: "networkmaps"}
	StorageMapGVR = schema.GroupVersionResource{Group: Group, Version: Version, Resource: "storagemaps"}
	ProviderGVR   = schema.GroupVersionResource{Group: Group, Version: Version, Resource: "providers"}
	HostGVR       = schema.GroupVersionResource{Group: Group, Version: Version, Resource: "hosts"}
	MigrationGVR  = schema.GroupVersionResource{Group: Group, Version: Version, Resource: "migrations"}

	NetworkAttachmentDefinitionGVR = schema.GroupVersionResource{
		Group:    "k8s.cni.cncf.io",
		Version:  "v1",
		Resource: "network-attachment-definitions",
	}
)

// listKinds maps every resource this package lists to its list kind.
var listKinds = map[schema.GroupVersionResource]string{
	PlanGVR:                        "PlanList",
	NetworkMapGVR:                  "NetworkMapList",
	StorageMapGVR:                  "StorageMapList",
	ProviderGVR:                    "ProviderList",
	HostGVR:                        "HostList",
	MigrationGVR:                   "MigrationList",
	NetworkAttachmentDefinitionGVR: "NetworkAttachmentDefinitionList",
}

// kindResources maps object kinds to the resource they are stored under.
var kindResources = map[string]schema.GroupVersionResource{
	"Plan":                        PlanGVR,
	"NetworkMap":                  NetworkMapGVR,
	"StorageMap":                  StorageMapGVR,
	"Provider":                    ProviderGVR,
	"Host":                        HostGVR,
	"Migration":                   MigrationGVR,
	"NetworkAttachmentDefinition": NetworkAttachmentDefinitionGVR,
}

// ObjectRef names a namespaced object.
type ObjectRef struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// ProviderPair is the source and destination provider of a plan or mapping.
type ProviderPair struct {
	Source      ObjectRef `json:"source"`
	Destination ObjectRef `json:"destination"`
}

// SourceRef identifies a source network or datastore by inventory id.
type SourceRef struct {
	ID string `json:"id"`
}

// Network destination types.
const (
	NetworkTypePod    = "pod"
	NetworkTypeMultus = "multus"
)

// NetworkDestination is either the pod network or a multus network
// attachment definition.
type NetworkDestination struct {
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

type NetworkPair struct {
	Source      SourceRef          `json:"source"`
	Destination NetworkDestination `json:"destination"`
}

type StorageDestination struct {
	StorageClass string `json:"storageClass"`
}

type StoragePair struct {
	Source      SourceRef          `json:"source"`
	Destination StorageDestination `json:"destination"`
}

type NetworkMapSpec struct {
	Provider ProviderPair  `json:"provider"`
	Map      []NetworkPair `json:"map"`
}

// NetworkMap is a persisted network mapping.
type NetworkMap struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec NetworkMapSpec `json:"spec"`
}

type StorageMapSpec struct {
	Provider ProviderPair  `json:"provider"`
	Map      []StoragePair `json:"map"`
}

// StorageMap is a persisted storage mapping.
type StorageMap struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec StorageMapSpec `json:"spec"`
}

type PlanMap struct {
	Networks   []NetworkPair `json:"networks"`
	Datastores []StoragePair `json:"datastores"`
}

// PlanVM references a source VM by inventory id.
type PlanVM struct {
	ID string `json:"id"`
}

type PlanSpec struct {
	Description     string       `json:"description"`
	Provider        ProviderPair `json:"provider"`
	TargetNamespace string       `json:"targetNamespace"`
	Map             PlanMap      `json:"map"`
	VMs             []PlanVM     `json:"vms"`
}

// Condition is a status condition set by the controller.
type Condition struct {
	Type     string `json:"type"`
	Status   string `json:"status"`
	Category string `json:"category,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
}

type PlanStatus struct {
	Conditions []Condition `json:"conditions,omitempty"`
}

// Plan is the unit of migration intent. Status is populated by the
// controller and only read here.
type Plan struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   PlanSpec   `json:"spec"`
	Status PlanStatus `json:"status,omitempty"`
}

type MigrationSpec struct {
	Plan ObjectRef `json:"plan"`
}

type MigrationStatus struct {
	Conditions []Condition `json:"conditions,omitempty"`
	NbVMsDone  int         `json:"nbVMsDone"`
}

// Migration is one execution of a plan.
type Migration struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   MigrationSpec   `json:"spec"`
	Status MigrationStatus `json:"status,omitempty"`
}

type ProviderSpec struct {
	Type   string     `json:"type"`
	URL    string     `json:"url,omitempty"`
	Secret *ObjectRef `json:"secret,omitempty"`
}

// Provider is a registered source or destination platform.
type Provider struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ProviderSpec `json:"spec"`
}

type HostSpec struct {
	ID        string     `json:"id"`
	IPAddress string     `json:"ipAddress"`
	Provider  ObjectRef  `json:"provider"`
	Secret    *ObjectRef `json:"secret,omitempty"`
}

// Host selects the ESXi network used to transfer disks from one host.
type Host struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec HostSpec `json:"spec"`
}

func typeMeta(kind string) metav1.TypeMeta {
	return metav1.TypeMeta{APIVersion: APIVersion, Kind: kind}
}

// NewPlan returns an empty plan with type metadata set.
func NewPlan(name, namespace string) *Plan {
	return &Plan{
		TypeMeta:   typeMeta("Plan"),
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
	}
}

func NewNetworkMap(name, namespace string) *NetworkMap {
	return &NetworkMap{
		TypeMeta:   typeMeta("NetworkMap"),
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
	}
}

func NewStorageMap(name, namespace string) *StorageMap {
	return &StorageMap{
		TypeMeta:   typeMeta("StorageMap"),
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
	}
}

func NewHost(name, namespace string) *Host {
	return &Host{
		TypeMeta:   typeMeta("Host"),
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
	}
}
