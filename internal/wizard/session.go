package wizard

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/kube"
	"github.com/rflorenc/vm-migration-console/internal/mapping"
)

// Session is one open wizard. Its form is only touched under the session
// lock.
type Session struct {
	ID        string
	Namespace string
	CreatedAt time.Time

	mu         sync.Mutex
	form       *Form
	editing    *kube.Plan
	prefill    prefill
	lastAccess time.Time
}

// NewSession opens a wizard. When editing is non-nil the form is prefilled
// from it by a Prefiller; otherwise prefill is already done.
func NewSession(id, namespace string, editing *kube.Plan) *Session {
	now := time.Now()
	s := &Session{
		ID:         id,
		Namespace:  namespace,
		CreatedAt:  now,
		form:       NewForm(),
		editing:    editing,
		prefill:    prefill{state: PrefillNotStarted},
		lastAccess: now,
	}
	if editing == nil {
		s.prefill.state = PrefillDone
	}
	return s
}

// Editing returns the plan being edited, or nil.
func (s *Session) Editing() *kube.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing
}

// LastAccess is when the session was last read or changed.
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// touch records an access. Callers hold s.mu.
func (s *Session) touch() {
	s.lastAccess = time.Now()
}

// Read calls fn with the form under the session lock.
func (s *Session) Read(fn func(f *Form)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	fn(s.form)
}

// Update calls fn with the form under the session lock.
func (s *Session) Update(fn func(f *Form) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return fn(s.form)
}

// ResetStep returns the step's fields to their baselines.
func (s *Session) ResetStep(step Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.form.ResetStep(step)
}

// View is the JSON shape of a session.
type View struct {
	ID        string          `json:"id"`
	EditPlan  string          `json:"editPlan,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	Form      json.RawMessage `json:"form"`
	Prefill   PrefillStatus   `json:"prefill"`
}

// View snapshots the session.
func (s *Session) View() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	data, err := json.Marshal(s.form)
	if err != nil {
		return View{}, errors.Wrap(err, "encoding wizard form")
	}
	v := View{ID: s.ID, CreatedAt: s.CreatedAt, Form: data, Prefill: s.prefillStatus()}
	if s.editing != nil {
		v.EditPlan = s.editing.Name
	}
	return v, nil
}

// Submission is everything the wizard writes when it finishes. A mapping is
// only set when the user asked to save it as a standalone resource.
type Submission struct {
	Plan       *kube.Plan
	NetworkMap *kube.NetworkMap
	StorageMap *kube.StorageMap
	Editing    bool
}

// Submission generates the plan and mappings from the current form.
func (s *Session) Submission() Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	networkMap, storageMap := GenerateMappings(s.form, s.Namespace)
	sub := Submission{
		Plan:    GeneratePlan(s.form, s.Namespace, networkMap, storageMap),
		Editing: s.editing != nil,
	}
	if networkMap != nil && s.form.NetworkMapping.IsSaveNewMapping.Value() {
		sub.NetworkMap = networkMap
	}
	if storageMap != nil && s.form.StorageMapping.IsSaveNewMapping.Value() {
		sub.StorageMap = storageMap
	}
	return sub
}

// GeneralValues is a user edit of the general step. Providers are given by
// name and namespace.
type GeneralValues struct {
	PlanName        string          `json:"planName"`
	PlanDescription string          `json:"planDescription"`
	SourceProvider  *kube.ObjectRef `json:"sourceProvider"`
	TargetProvider  *kube.ObjectRef `json:"targetProvider"`
	TargetNamespace string          `json:"targetNamespace"`
}

func findProvider(providers inventory.Providers, ref *kube.ObjectRef, want inventory.ProviderType) (*inventory.Provider, error) {
	if ref == nil {
		return nil, nil
	}
	p := providers.Find(ref.Name, ref.Namespace)
	if p == nil || p.Type != want {
		return nil, errors.Wrapf(ErrInvalid, "no %s provider %s/%s", want, ref.Namespace, ref.Name)
	}
	return p, nil
}

// Apply sets the general step fields.
func (v GeneralValues) Apply(f *Form, providers inventory.Providers) error {
	source, err := findProvider(providers, v.SourceProvider, inventory.ProviderVSphere)
	if err != nil {
		return err
	}
	target, err := findProvider(providers, v.TargetProvider, inventory.ProviderOpenShift)
	if err != nil {
		return err
	}
	g := &f.General
	g.PlanName.SetValue(v.PlanName)
	g.PlanDescription.SetValue(v.PlanDescription)
	g.SourceProvider.SetValue(source)
	g.TargetProvider.SetValue(target)
	g.TargetNamespace.SetValue(v.TargetNamespace)
	return nil
}

// FilterVMsValues is a user edit of the filter step: the tree shape and the
// self links of the checked nodes.
type FilterVMsValues struct {
	TreeType      string   `json:"treeType"`
	SelectedNodes []string `json:"selectedNodes"`
}

// Apply resolves the checked nodes against tree, which must be of the
// requested shape.
func (v FilterVMsValues) Apply(f *Form, tree *inventory.Tree) error {
	bySelfLink := make(map[string]*inventory.Tree)
	for _, node := range inventory.FlattenTreeNodes(tree) {
		if link := node.SelfLink(); link != "" {
			bySelfLink[link] = node
		}
	}
	nodes := make([]*inventory.Tree, 0, len(v.SelectedNodes))
	for _, link := range v.SelectedNodes {
		node, ok := bySelfLink[link]
		if !ok {
			return errors.Wrapf(ErrInvalid, "no tree node %s", link)
		}
		nodes = append(nodes, node)
	}
	f.FilterVMs.TreeType.SetValue(inventory.ParseTreeType(v.TreeType))
	f.FilterVMs.SelectedTreeNodes.SetValue(nodes)
	return nil
}

// SelectVMsValues is a user edit of the VM selection step.
type SelectVMsValues struct {
	VMIDs []string `json:"vmIds"`
}

// Apply resolves the ids against the VMs available under the filter step's
// selected nodes.
func (v SelectVMsValues) Apply(f *Form, available []inventory.VM) error {
	byID := make(map[string]inventory.VM, len(available))
	for _, vm := range available {
		byID[vm.ID] = vm
	}
	vms := make([]inventory.VM, 0, len(v.VMIDs))
	for _, id := range v.VMIDs {
		vm, ok := byID[id]
		if !ok {
			return errors.Wrapf(ErrInvalid, "VM %s is not available", id)
		}
		vms = append(vms, vm)
	}
	f.SelectVMs.SelectedVMs.SetValue(vms)
	return nil
}

// TargetRef names a mapping target: a network type with name and namespace
// for multus networks, or a storage class name.
type TargetRef struct {
	Type      string `json:"type,omitempty"`
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

type MappingItemValue struct {
	SourceID string     `json:"sourceId"`
	Target   *TargetRef `json:"target"`
}

// MappingValues is a user edit of a mapping step.
type MappingValues struct {
	Items          []MappingItemValue `json:"items"`
	SaveNewMapping bool               `json:"saveNewMapping"`
	NewMappingName string             `json:"newMappingName"`
}

func resolveTarget(t mapping.Type, ref *TargetRef, targets []mapping.Target) *mapping.Target {
	if t == mapping.Network && ref.Type == kube.NetworkTypePod {
		pod := mapping.PodNetwork
		return &pod
	}
	for i := range targets {
		tg := targets[i]
		if tg.Name != ref.Name {
			continue
		}
		if t == mapping.Network && (tg.Type != kube.NetworkTypeMultus || tg.Namespace != ref.Namespace) {
			continue
		}
		return &tg
	}
	return nil
}

// Apply resolves the items against res. An item may leave its target unset.
func (v MappingValues) Apply(f *Form, t mapping.Type, res mapping.Resources) error {
	items := make([]mapping.BuilderItem, 0, len(v.Items))
	for _, in := range v.Items {
		var item mapping.BuilderItem
		for i := range res.Sources {
			if res.Sources[i].ID == in.SourceID {
				src := res.Sources[i]
				item.Source = &src
				break
			}
		}
		if item.Source == nil {
			return errors.Wrapf(ErrInvalid, "unknown %s source %s", t, in.SourceID)
		}
		if in.Target != nil {
			item.Target = resolveTarget(t, in.Target, res.Targets)
			if item.Target == nil {
				return errors.Wrapf(ErrInvalid, "unknown %s target %s", t, in.Target.Name)
			}
		}
		items = append(items, item)
	}
	if v.SaveNewMapping && v.NewMappingName == "" {
		return errors.Wrap(ErrInvalid, "a name is required to save the mapping")
	}
	m := f.Mapping(t)
	m.BuilderItems.SetValue(items)
	m.IsSaveNewMapping.SetValue(v.SaveNewMapping)
	m.NewMappingName.SetValue(v.NewMappingName)
	return nil
}
