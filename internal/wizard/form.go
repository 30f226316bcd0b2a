// Package wizard holds the plan wizard: its per-step form state, the plan and
// mapping resources generated from it, and the prefill that reproduces an
// existing plan when the wizard is opened to edit it.
package wizard

import (
	"github.com/rflorenc/vm-migration-console/internal/form"
	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/mapping"
)

// Step names one page of the wizard.
type Step string

const (
	StepGeneral        Step = "general"
	StepFilterVMs      Step = "filter-vms"
	StepSelectVMs      Step = "select-vms"
	StepNetworkMapping Step = "network-mapping"
	StepStorageMapping Step = "storage-mapping"
)

// Steps lists the wizard steps in order.
var Steps = []Step{StepGeneral, StepFilterVMs, StepSelectVMs, StepNetworkMapping, StepStorageMapping}

// ParseStep returns the step named s.
func ParseStep(s string) (Step, bool) {
	for _, step := range Steps {
		if string(step) == s {
			return step, true
		}
	}
	return "", false
}

type GeneralForm struct {
	PlanName        form.Field[string]              `json:"planName"`
	PlanDescription form.Field[string]              `json:"planDescription"`
	SourceProvider  form.Field[*inventory.Provider] `json:"sourceProvider"`
	TargetProvider  form.Field[*inventory.Provider] `json:"targetProvider"`
	TargetNamespace form.Field[string]              `json:"targetNamespace"`
}

type FilterVMsForm struct {
	TreeType          form.Field[inventory.TreeType] `json:"treeType"`
	SelectedTreeNodes form.Field[[]*inventory.Tree]  `json:"selectedTreeNodes"`
	IsPrefilled       form.Field[bool]               `json:"isPrefilled"`
}

type SelectVMsForm struct {
	SelectedVMs form.Field[[]inventory.VM] `json:"selectedVMs"`
}

// MappingForm is the network or storage mapping step.
type MappingForm struct {
	BuilderItems     form.Field[[]mapping.BuilderItem] `json:"builderItems"`
	IsSaveNewMapping form.Field[bool]                  `json:"isSaveNewMapping"`
	NewMappingName   form.Field[string]                `json:"newMappingName"`
	IsPrefilled      form.Field[bool]                  `json:"isPrefilled"`
}

func newMappingForm() MappingForm {
	return MappingForm{BuilderItems: form.NewField([]mapping.BuilderItem{})}
}

func (m *MappingForm) reset() {
	m.BuilderItems.Reset()
	m.IsSaveNewMapping.Reset()
	m.NewMappingName.Reset()
	m.IsPrefilled.Reset()
}

// Form is the state of every wizard step.
type Form struct {
	General        GeneralForm   `json:"general"`
	FilterVMs      FilterVMsForm `json:"filterVMs"`
	SelectVMs      SelectVMsForm `json:"selectVMs"`
	NetworkMapping MappingForm   `json:"networkMapping"`
	StorageMapping MappingForm   `json:"storageMapping"`
}

// NewForm returns an empty form. The filter step starts on the host tree.
func NewForm() *Form {
	return &Form{
		FilterVMs: FilterVMsForm{
			TreeType:          form.NewField(inventory.TreeTypeHost),
			SelectedTreeNodes: form.NewField([]*inventory.Tree{}),
		},
		SelectVMs:      SelectVMsForm{SelectedVMs: form.NewField([]inventory.VM{})},
		NetworkMapping: newMappingForm(),
		StorageMapping: newMappingForm(),
	}
}

// Mapping returns the step form for the given mapping type.
func (f *Form) Mapping(t mapping.Type) *MappingForm {
	if t == mapping.Storage {
		return &f.StorageMapping
	}
	return &f.NetworkMapping
}

// ResetStep returns every field of the step to its baseline, which is the
// prefilled value when editing a plan.
func (f *Form) ResetStep(step Step) {
	switch step {
	case StepGeneral:
		g := &f.General
		g.PlanName.Reset()
		g.PlanDescription.Reset()
		g.SourceProvider.Reset()
		g.TargetProvider.Reset()
		g.TargetNamespace.Reset()
	case StepFilterVMs:
		f.FilterVMs.TreeType.Reset()
		f.FilterVMs.SelectedTreeNodes.Reset()
		f.FilterVMs.IsPrefilled.Reset()
	case StepSelectVMs:
		f.SelectVMs.SelectedVMs.Reset()
	case StepNetworkMapping:
		f.NetworkMapping.reset()
	case StepStorageMapping:
		f.StorageMapping.reset()
	}
}
