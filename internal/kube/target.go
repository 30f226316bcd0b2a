package kube

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
)

// TargetInventory serves the OpenShift side of the inventory straight from the
// cluster: destination providers, network attachment definitions and storage
// classes. Source-side calls return inventory.ErrUnsupported.
type TargetInventory struct {
	client *Client
}

var _ inventory.Source = (*TargetInventory)(nil)

func NewTargetInventory(c *Client) *TargetInventory {
	return &TargetInventory{client: c}
}

func providerSelfLink(providerType, uid string) string {
	return fmt.Sprintf("/providers/%s/%s", providerType, uid)
}

// Providers returns the OpenShift providers registered in the namespace.
func (t *TargetInventory) Providers(ctx context.Context) (inventory.Providers, error) {
	crs, err := t.client.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	result := inventory.Providers{inventory.ProviderOpenShift: {}}
	for _, cr := range crs {
		if inventory.ProviderType(cr.Spec.Type) != inventory.ProviderOpenShift {
			continue
		}
		result[inventory.ProviderOpenShift] = append(result[inventory.ProviderOpenShift], inventory.Provider{
			UID:       string(cr.UID),
			Namespace: cr.Namespace,
			Name:      cr.Name,
			Type:      inventory.ProviderOpenShift,
			SelfLink:  providerSelfLink(cr.Spec.Type, string(cr.UID)),
		})
	}
	return result, nil
}

func (t *TargetInventory) NetworkAttachmentDefinitions(ctx context.Context, p *inventory.Provider) ([]inventory.NetworkAttachmentDefinition, error) {
	ul, err := t.client.dynamic.Resource(NetworkAttachmentDefinitionGVR).Namespace(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "listing network attachment definitions")
	}
	nads := make([]inventory.NetworkAttachmentDefinition, 0, len(ul.Items))
	for _, item := range ul.Items {
		nads = append(nads, inventory.NetworkAttachmentDefinition{
			UID:       string(item.GetUID()),
			Namespace: item.GetNamespace(),
			Name:      item.GetName(),
			SelfLink:  fmt.Sprintf("%s/networkattachmentdefinitions/%s", p.SelfLink, item.GetUID()),
		})
	}
	sort.Slice(nads, func(i, j int) bool {
		if nads[i].Namespace != nads[j].Namespace {
			return nads[i].Namespace < nads[j].Namespace
		}
		return nads[i].Name < nads[j].Name
	})
	return nads, nil
}

func (t *TargetInventory) StorageClasses(ctx context.Context, p *inventory.Provider) ([]inventory.StorageClass, error) {
	scs, err := t.client.core.StorageV1().StorageClasses().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "listing storage classes")
	}
	result := make([]inventory.StorageClass, 0, len(scs.Items))
	for _, sc := range scs.Items {
		result = append(result, inventory.StorageClass{
			UID:      string(sc.UID),
			Name:     sc.Name,
			SelfLink: fmt.Sprintf("%s/storageclasses/%s", p.SelfLink, sc.UID),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (t *TargetInventory) VMs(context.Context, *inventory.Provider) ([]inventory.VM, error) {
	return nil, inventory.ErrUnsupported
}

func (t *TargetInventory) Tree(context.Context, *inventory.Provider, inventory.TreeType) (*inventory.Tree, error) {
	return nil, inventory.ErrUnsupported
}

func (t *TargetInventory) Networks(context.Context, *inventory.Provider) ([]inventory.Network, error) {
	return nil, inventory.ErrUnsupported
}

func (t *TargetInventory) Datastores(context.Context, *inventory.Provider) ([]inventory.Datastore, error) {
	return nil, inventory.ErrUnsupported
}

func (t *TargetInventory) Hosts(context.Context, *inventory.Provider) ([]inventory.Host, error) {
	return nil, inventory.ErrUnsupported
}
