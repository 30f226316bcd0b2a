package wizard

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/mapping"
	"github.com/rflorenc/vm-migration-console/internal/metrics"
)

// PrefillState is the progress of reproducing an edited plan in the form.
type PrefillState string

const (
	PrefillNotStarted PrefillState = "NotStarted"
	PrefillPrefilling PrefillState = "Prefilling"
	PrefillDone       PrefillState = "Done"
)

// PrefillErrorTitles are the titles of the prefill queries, in the order
// the queries are reported.
var PrefillErrorTitles = []string{
	"Error loading providers",
	"Error loading VMs",
	"Error loading VMware host tree data",
	"Error loading VMware VM tree data",
	"Error loading source networks",
	"Error loading target networks",
	"Error loading source datastores",
	"Error loading target storage classes",
}

type prefillQueries struct {
	providers        QueryResult[inventory.Providers]
	vms              QueryResult[[]inventory.VM]
	hostTree         QueryResult[*inventory.Tree]
	vmTree           QueryResult[*inventory.Tree]
	sourceNetworks   QueryResult[[]inventory.Network]
	targetNetworks   QueryResult[[]inventory.NetworkAttachmentDefinition]
	sourceDatastores QueryResult[[]inventory.Datastore]
	storageClasses   QueryResult[[]inventory.StorageClass]
}

// list must follow PrefillErrorTitles.
func (q *prefillQueries) list() []Query {
	return []Query{
		&q.providers,
		&q.vms,
		&q.hostTree,
		&q.vmTree,
		&q.sourceNetworks,
		&q.targetNetworks,
		&q.sourceDatastores,
		&q.storageClasses,
	}
}

func (q *prefillQueries) markLoading() {
	for _, query := range q.list() {
		if l, ok := query.(interface{ setLoading() }); ok && query.QueryStatus() != StatusSuccess {
			l.setLoading()
		}
	}
}

func (q *QueryResult[T]) setLoading() {
	q.Status, q.Err = StatusLoading, nil
}

type prefill struct {
	state   PrefillState
	started bool
	queries prefillQueries
}

// QueryView is the status of one prefill query.
type QueryView struct {
	Title  string      `json:"title"`
	Status QueryStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// PrefillStatus is what callers show while a plan is being prefilled.
type PrefillStatus struct {
	State            PrefillState `json:"state"`
	IsDonePrefilling bool         `json:"isDonePrefilling"`
	Status           QueryStatus  `json:"status"`
	Error            string       `json:"error,omitempty"`
	ErrorTitle       string       `json:"errorTitle,omitempty"`
	Queries          []QueryView  `json:"queries,omitempty"`
}

// PrefillStatus reports the prefill state and the aggregate query status.
func (s *Session) PrefillStatus() PrefillStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefillStatus()
}

func (s *Session) prefillStatus() PrefillStatus {
	st := PrefillStatus{State: s.prefill.state, IsDonePrefilling: s.prefill.state == PrefillDone}
	if s.editing == nil {
		st.Status = StatusSuccess
		return st
	}
	queries := s.prefill.queries.list()
	st.Status = AggregateStatus(queries)
	if i, err := FirstError(queries); err != nil {
		st.Error = err.Error()
		st.ErrorTitle = PrefillErrorTitles[i]
	}
	for i, q := range queries {
		v := QueryView{Title: PrefillErrorTitles[i], Status: q.QueryStatus()}
		if err := q.QueryError(); err != nil {
			v.Error = err.Error()
		}
		st.Queries = append(st.Queries, v)
	}
	return st
}

// Prefiller runs the queries an edited plan depends on and, once all of them
// succeed, writes the plan into the form.
type Prefiller struct {
	Source  inventory.Source
	Metrics *metrics.Metrics
	Log     logrus.FieldLogger
}

// Run fetches every query that has not succeeded yet. Providers are resolved
// first; the other queries run concurrently and each records its own
// outcome. A query whose provider cannot be resolved stays idle. Run may be
// called again to retry after a failure.
func (p *Prefiller) Run(ctx context.Context, s *Session) PrefillStatus {
	s.mu.Lock()
	s.touch()
	if s.prefill.state == PrefillDone {
		st := s.prefillStatus()
		s.mu.Unlock()
		return st
	}
	s.prefill.queries.markLoading()
	queries := s.prefill.queries
	plan := s.editing
	s.mu.Unlock()

	if queries.providers.pending() {
		queries.providers.set(p.Source.Providers(ctx))
	}
	var source, target *inventory.Provider
	if queries.providers.Status == StatusSuccess {
		ref := plan.Spec.Provider
		source = queries.providers.Data.Find(ref.Source.Name, ref.Source.Namespace)
		target = queries.providers.Data.Find(ref.Destination.Name, ref.Destination.Namespace)
	}

	var g errgroup.Group
	runQuery(&g, &queries.vms, source, func(pr *inventory.Provider) ([]inventory.VM, error) {
		return p.Source.VMs(ctx, pr)
	})
	runQuery(&g, &queries.hostTree, source, func(pr *inventory.Provider) (*inventory.Tree, error) {
		return p.Source.Tree(ctx, pr, inventory.TreeTypeHost)
	})
	runQuery(&g, &queries.vmTree, source, func(pr *inventory.Provider) (*inventory.Tree, error) {
		return p.Source.Tree(ctx, pr, inventory.TreeTypeVM)
	})
	runQuery(&g, &queries.sourceNetworks, source, func(pr *inventory.Provider) ([]inventory.Network, error) {
		return p.Source.Networks(ctx, pr)
	})
	runQuery(&g, &queries.targetNetworks, target, func(pr *inventory.Provider) ([]inventory.NetworkAttachmentDefinition, error) {
		return p.Source.NetworkAttachmentDefinitions(ctx, pr)
	})
	runQuery(&g, &queries.sourceDatastores, source, func(pr *inventory.Provider) ([]inventory.Datastore, error) {
		return p.Source.Datastores(ctx, pr)
	})
	runQuery(&g, &queries.storageClasses, target, func(pr *inventory.Provider) ([]inventory.StorageClass, error) {
		return p.Source.StorageClasses(ctx, pr)
	})
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefill.state == PrefillDone {
		return s.prefillStatus()
	}
	s.prefill.queries = queries
	s.transition()

	st := s.prefillStatus()
	log := p.Log.WithFields(logrus.Fields{"session": s.ID, "plan": plan.Name, "status": st.Status})
	switch {
	case st.IsDonePrefilling:
		log.Info("prefilled wizard from plan")
		p.Metrics.Prefill("done")
	case st.Status == StatusError:
		log.WithField("error", st.Error).Warn(st.ErrorTitle)
		p.Metrics.Prefill("error")
	default:
		log.Debug("prefill waiting on queries")
		p.Metrics.Prefill("pending")
	}
	return st
}

func runQuery[T any](g *errgroup.Group, q *QueryResult[T], p *inventory.Provider, fetch func(*inventory.Provider) (T, error)) {
	if !q.pending() {
		return
	}
	if p == nil {
		var zero T
		q.Status, q.Data, q.Err = StatusIdle, zero, nil
		return
	}
	g.Go(func() error {
		q.set(fetch(p))
		return nil
	})
}

// transition moves NotStarted to Done through Prefilling once every query
// succeeded. The baselines and the Done state are written together under
// the session lock, so no reader sees a partial prefill. Callers hold s.mu.
func (s *Session) transition() {
	pf := &s.prefill
	if pf.started || s.editing == nil {
		return
	}
	if AggregateStatus(pf.queries.list()) != StatusSuccess {
		return
	}
	pf.started = true
	pf.state = PrefillPrefilling
	s.applyPrefill()
	pf.state = PrefillDone
}

func (s *Session) applyPrefill() {
	plan := s.editing
	q := &s.prefill.queries
	f := s.form

	ref := plan.Spec.Provider
	source := q.providers.Data.Find(ref.Source.Name, ref.Source.Namespace)
	target := q.providers.Data.Find(ref.Destination.Name, ref.Destination.Namespace)

	selectedVMs := SelectedVMsFromPlan(plan, q.vms.Data)
	tree := q.hostTree.Data
	if f.FilterVMs.TreeType.Value() == inventory.TreeTypeVM {
		tree = q.vmTree.Data
	}
	selectedNodes := inventory.FindNodesMatchingSelectedVMs(tree, selectedVMs)

	f.General.PlanName.SetInitialValue(plan.Name)
	if plan.Spec.Description != "" {
		f.General.PlanDescription.SetInitialValue(plan.Spec.Description)
	}
	f.General.SourceProvider.SetInitialValue(source)
	f.General.TargetProvider.SetInitialValue(target)
	f.General.TargetNamespace.SetInitialValue(plan.Spec.TargetNamespace)

	f.FilterVMs.SelectedTreeNodes.SetInitialValue(selectedNodes)
	f.FilterVMs.IsPrefilled.SetInitialValue(true)

	f.SelectVMs.SelectedVMs.SetInitialValue(selectedVMs)

	networks := mapping.Resources{
		Type:    mapping.Network,
		Sources: mapping.NetworkSources(q.sourceNetworks.Data),
		Targets: mapping.NetworkTargets(q.targetNetworks.Data),
	}
	f.NetworkMapping.BuilderItems.SetInitialValue(mapping.BuilderItemsWithMissingSources(
		mapping.BuilderItemsFromNetworkPairs(plan.Spec.Map.Networks, networks),
		networks, selectedVMs, mapping.Network, false,
	))
	f.NetworkMapping.IsPrefilled.SetInitialValue(true)

	storage := mapping.Resources{
		Type:    mapping.Storage,
		Sources: mapping.DatastoreSources(q.sourceDatastores.Data),
		Targets: mapping.StorageTargets(q.storageClasses.Data),
	}
	f.StorageMapping.BuilderItems.SetInitialValue(mapping.BuilderItemsWithMissingSources(
		mapping.BuilderItemsFromStoragePairs(plan.Spec.Map.Datastores, storage),
		storage, selectedVMs, mapping.Storage, false,
	))
	f.StorageMapping.IsPrefilled.SetInitialValue(true)
}
