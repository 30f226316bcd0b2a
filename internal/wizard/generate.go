package wizard

import (
	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/kube"
	"github.com/rflorenc/vm-migration-console/internal/mapping"
)

// GenerateMappings builds the network and storage mappings from the mapping
// steps. Both are nil until the source and target providers are chosen.
func GenerateMappings(f *Form, namespace string) (*kube.NetworkMap, *kube.StorageMap) {
	source := f.General.SourceProvider.Value()
	target := f.General.TargetProvider.Value()
	if source == nil || target == nil {
		return nil, nil
	}
	networkMap := mapping.NetworkMapFromBuilderItems(
		f.NetworkMapping.NewMappingName.Value(), namespace, source, target,
		f.NetworkMapping.BuilderItems.Value(),
	)
	storageMap := mapping.StorageMapFromBuilderItems(
		f.StorageMapping.NewMappingName.Value(), namespace, source, target,
		f.StorageMapping.BuilderItems.Value(),
	)
	return networkMap, storageMap
}

// GeneratePlan assembles the plan resource. A nil mapping contributes an
// empty list; VMs are referenced by id only.
func GeneratePlan(f *Form, namespace string, networkMap *kube.NetworkMap, storageMap *kube.StorageMap) *kube.Plan {
	plan := kube.NewPlan(f.General.PlanName.Value(), namespace)
	plan.Spec.Description = f.General.PlanDescription.Value()
	plan.Spec.Provider = mapping.ProviderPair(f.General.SourceProvider.Value(), f.General.TargetProvider.Value())
	plan.Spec.TargetNamespace = f.General.TargetNamespace.Value()

	plan.Spec.Map.Networks = []kube.NetworkPair{}
	if networkMap != nil {
		plan.Spec.Map.Networks = append(plan.Spec.Map.Networks, networkMap.Spec.Map...)
	}
	plan.Spec.Map.Datastores = []kube.StoragePair{}
	if storageMap != nil {
		plan.Spec.Map.Datastores = append(plan.Spec.Map.Datastores, storageMap.Spec.Map...)
	}

	vms := f.SelectVMs.SelectedVMs.Value()
	plan.Spec.VMs = make([]kube.PlanVM, 0, len(vms))
	for _, vm := range vms {
		plan.Spec.VMs = append(plan.Spec.VMs, kube.PlanVM{ID: vm.ID})
	}
	return plan
}

// SelectedVMsFromPlan resolves the plan's VM ids against vms in plan order.
// Ids that are not in vms are dropped.
func SelectedVMsFromPlan(plan *kube.Plan, vms []inventory.VM) []inventory.VM {
	selected := []inventory.VM{}
	if plan == nil {
		return selected
	}
	byID := make(map[string]inventory.VM, len(vms))
	for _, vm := range vms {
		byID[vm.ID] = vm
	}
	for _, ref := range plan.Spec.VMs {
		if vm, ok := byID[ref.ID]; ok {
			selected = append(selected, vm)
		}
	}
	return selected
}
