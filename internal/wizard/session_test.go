package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/kube"
	"github.com/rflorenc/vm-migration-console/internal/mapping"
)

func TestGeneralValues_Apply(t *testing.T) {
	providers := inventory.Providers{
		inventory.ProviderVSphere:   {*vcenter},
		inventory.ProviderOpenShift: {*ocp},
	}
	f := NewForm()
	err := GeneralValues{
		PlanName:       "plan-a",
		SourceProvider: &kube.ObjectRef{Name: "vcenter-1", Namespace: ns},
		TargetProvider: &kube.ObjectRef{Name: "host", Namespace: ns},
	}.Apply(f, providers)
	require.NoError(t, err)
	assert.Equal(t, "plan-a", f.General.PlanName.Value())
	assert.True(t, f.General.PlanName.IsDirty())
	assert.Equal(t, "vcenter-1", f.General.SourceProvider.Value().Name)

	// a target provider cannot be used as the source
	err = GeneralValues{SourceProvider: &kube.ObjectRef{Name: "host", Namespace: ns}}.Apply(f, providers)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestFilterAndSelectVMsValues_Apply(t *testing.T) {
	src := newFlakySource(t)
	ctx := context.Background()
	vc, err := src.Providers(ctx)
	require.NoError(t, err)
	p := vc.Find("vcenter-1", ns)
	tree, err := src.Tree(ctx, p, inventory.TreeTypeHost)
	require.NoError(t, err)
	vms, err := src.VMs(ctx, p)
	require.NoError(t, err)

	f := NewForm()
	err = FilterVMsValues{
		TreeType:      "host",
		SelectedNodes: []string{"/providers/vsphere/vc-uid-1/hosts/host-1"},
	}.Apply(f, tree)
	require.NoError(t, err)
	nodes := f.FilterVMs.SelectedTreeNodes.Value()
	require.Len(t, nodes, 1)
	assert.Equal(t, "H1", nodes[0].Name())

	available := inventory.AvailableVMs(nodes, vms)
	require.NoError(t, SelectVMsValues{VMIDs: []string{"vm-2"}}.Apply(f, available))
	assert.Equal(t, "web-02", f.SelectVMs.SelectedVMs.Value()[0].Name)

	// vm-4 lives under H3
	err = SelectVMsValues{VMIDs: []string{"vm-4"}}.Apply(f, available)
	assert.True(t, errors.Is(err, ErrInvalid))

	err = FilterVMsValues{SelectedNodes: []string{"/nope"}}.Apply(f, tree)
	assert.True(t, errors.Is(err, ErrInvalid))

	// nodes without an object cannot be addressed by self link
	err = FilterVMsValues{SelectedNodes: []string{""}}.Apply(f, tree)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestMappingValues_Apply(t *testing.T) {
	f := NewForm()
	err := MappingValues{
		Items: []MappingItemValue{
			{SourceID: "network-1", Target: &TargetRef{Type: kube.NetworkTypePod}},
			{SourceID: "network-2", Target: &TargetRef{Type: kube.NetworkTypeMultus, Name: "br1", Namespace: "default"}},
		},
		SaveNewMapping: true,
		NewMappingName: "vcenter-1-net",
	}.Apply(f, mapping.Network, networkRes)
	require.NoError(t, err)
	items := f.NetworkMapping.BuilderItems.Value()
	require.Len(t, items, 2)
	assert.Equal(t, mapping.PodNetwork, *items[0].Target)
	assert.Equal(t, "br1", items[1].Target.Name)

	err = MappingValues{Items: []MappingItemValue{{SourceID: "datastore-1"}}}.Apply(f, mapping.Storage, storageRes)
	require.NoError(t, err)
	assert.Nil(t, f.StorageMapping.BuilderItems.Value()[0].Target)

	tests := []MappingValues{
		{Items: []MappingItemValue{{SourceID: "network-9"}}},
		{Items: []MappingItemValue{{SourceID: "network-1", Target: &TargetRef{Type: kube.NetworkTypeMultus, Name: "br1", Namespace: "web"}}}},
		{SaveNewMapping: true},
	}
	for _, v := range tests {
		assert.True(t, errors.Is(v.Apply(f, mapping.Network, networkRes), ErrInvalid), "%+v", v)
	}
}

func TestSession_Submission(t *testing.T) {
	s := NewSession("id", ns, nil)
	require.NoError(t, s.Update(func(f *Form) error {
		*f = *filledForm()
		f.NetworkMapping.IsSaveNewMapping.SetValue(true)
		f.NetworkMapping.NewMappingName.SetValue("plan-a-networks")
		return nil
	}))

	sub := s.Submission()
	assert.False(t, sub.Editing)
	assert.Equal(t, "plan-a", sub.Plan.Name)
	require.NotNil(t, sub.NetworkMap)
	assert.Equal(t, "plan-a-networks", sub.NetworkMap.Name)
	assert.Nil(t, sub.StorageMap)

	v, err := s.View()
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(v.Form, &decoded))
	assert.Contains(t, decoded, "networkMapping")
	assert.True(t, v.Prefill.IsDonePrefilling)
}

func TestLoadMappingResources(t *testing.T) {
	src := newFlakySource(t)
	ctx := context.Background()
	providers, err := src.Providers(ctx)
	require.NoError(t, err)
	source := providers.Find("vcenter-1", ns)
	target := providers.Find("host", ns)

	res, err := LoadMappingResources(ctx, src, source, target, mapping.Storage)
	require.NoError(t, err)
	assert.Len(t, res.Sources, 2)
	assert.Len(t, res.Targets, 3)

	res, err = LoadMappingResources(ctx, src, source, target, mapping.Network)
	require.NoError(t, err)
	assert.Equal(t, mapping.PodNetwork, res.Targets[0])

	_, err = LoadMappingResources(ctx, src, nil, target, mapping.Network)
	assert.True(t, errors.Is(err, ErrInvalid))
}
