package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/kube"
	"github.com/rflorenc/vm-migration-console/internal/mapping"
	"github.com/rflorenc/vm-migration-console/internal/models"
	"github.com/rflorenc/vm-migration-console/internal/wizard"
)

func (s *Server) session(r *http.Request) (*wizard.Session, error) {
	id := chi.URLParam(r, "id")
	session := s.Sessions.Get(id)
	if session == nil {
		return nil, errors.Wrapf(errNotFound, "wizard %s", id)
	}
	return session, nil
}

func (s *Server) writeView(w http.ResponseWriter, r *http.Request, status int, session *wizard.Session) {
	view, err := session.View()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, status, view)
}

// CreateWizard opens a wizard. With {"editPlan": name} the wizard edits that
// plan and its prefill starts right away.
func (s *Server) CreateWizard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EditPlan string `json:"editPlan"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	var editing *kube.Plan
	if req.EditPlan != "" {
		plan, err := s.Kube.GetPlan(r.Context(), req.EditPlan)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		editing = plan
	}
	session := s.Sessions.Create(s.namespace(), editing)
	if editing != nil {
		s.Prefiller.Run(r.Context(), session)
	}
	s.writeView(w, r, http.StatusCreated, session)
}

func (s *Server) GetWizard(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeView(w, r, http.StatusOK, session)
}

func (s *Server) DeleteWizard(w http.ResponseWriter, r *http.Request) {
	if !s.Sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "wizard not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RetryPrefill re-runs the prefill queries that have not succeeded.
func (s *Server) RetryPrefill(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if session.Editing() == nil {
		writeError(w, http.StatusConflict, "wizard is not editing a plan")
		return
	}
	s.Prefiller.Run(r.Context(), session)
	s.writeView(w, r, http.StatusOK, session)
}

// formState is the part of the form the step handlers need to load
// inventory before applying an edit.
type formState struct {
	source, target *inventory.Provider
	treeType       inventory.TreeType
	nodes          []*inventory.Tree
	selectedVMs    []inventory.VM
	items          map[mapping.Type][]mapping.BuilderItem
}

func readFormState(session *wizard.Session) formState {
	var st formState
	session.Read(func(f *wizard.Form) {
		st.source = f.General.SourceProvider.Value()
		st.target = f.General.TargetProvider.Value()
		st.treeType = f.FilterVMs.TreeType.Value()
		st.nodes = f.FilterVMs.SelectedTreeNodes.Value()
		st.selectedVMs = f.SelectVMs.SelectedVMs.Value()
		st.items = map[mapping.Type][]mapping.BuilderItem{
			mapping.Network: f.NetworkMapping.BuilderItems.Value(),
			mapping.Storage: f.StorageMapping.BuilderItems.Value(),
		}
	})
	return st
}

func requireSource(st formState) error {
	if st.source == nil {
		return errors.Wrap(wizard.ErrInvalid, "a source provider must be chosen first")
	}
	return nil
}

// UpdateWizardStep applies the user's values for one step. Inventory the
// values refer to is loaded before the form is locked.
func (s *Server) UpdateWizardStep(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	step, ok := wizard.ParseStep(chi.URLParam(r, "step"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown wizard step")
		return
	}
	if err := s.applyStep(r, session, step); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeView(w, r, http.StatusOK, session)
}

func (s *Server) applyStep(r *http.Request, session *wizard.Session, step wizard.Step) error {
	ctx := r.Context()
	st := readFormState(session)

	switch step {
	case wizard.StepGeneral:
		var v wizard.GeneralValues
		if err := decodeJSON(r, &v); err != nil {
			return err
		}
		providers, err := s.Inventory.Providers(ctx)
		if err != nil {
			return err
		}
		if v.PlanName != "" {
			plans, err := s.Kube.ListPlans(ctx)
			if err != nil {
				return err
			}
			if err := wizard.ValidatePlanName(v.PlanName, plans, session.Editing()); err != nil {
				return err
			}
		}
		return session.Update(func(f *wizard.Form) error { return v.Apply(f, providers) })

	case wizard.StepFilterVMs:
		var v wizard.FilterVMsValues
		if err := decodeJSON(r, &v); err != nil {
			return err
		}
		if err := requireSource(st); err != nil {
			return err
		}
		tree, err := s.Inventory.Tree(ctx, st.source, inventory.ParseTreeType(v.TreeType))
		if err != nil {
			return err
		}
		return session.Update(func(f *wizard.Form) error { return v.Apply(f, tree) })

	case wizard.StepSelectVMs:
		var v wizard.SelectVMsValues
		if err := decodeJSON(r, &v); err != nil {
			return err
		}
		if err := requireSource(st); err != nil {
			return err
		}
		vms, err := s.Inventory.VMs(ctx, st.source)
		if err != nil {
			return err
		}
		available := inventory.AvailableVMs(st.nodes, vms)
		return session.Update(func(f *wizard.Form) error { return v.Apply(f, available) })

	case wizard.StepNetworkMapping, wizard.StepStorageMapping:
		t := mapping.Network
		if step == wizard.StepStorageMapping {
			t = mapping.Storage
		}
		var v wizard.MappingValues
		if err := decodeJSON(r, &v); err != nil {
			return err
		}
		res, err := wizard.LoadMappingResources(ctx, s.Inventory, st.source, st.target, t)
		if err != nil {
			return err
		}
		return session.Update(func(f *wizard.Form) error { return v.Apply(f, t, res) })
	}
	return nil
}

// ResetWizardStep returns a step to its baseline values.
func (s *Server) ResetWizardStep(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	step, ok := wizard.ParseStep(chi.URLParam(r, "step"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown wizard step")
		return
	}
	session.ResetStep(step)
	s.writeView(w, r, http.StatusOK, session)
}

// GetWizardTree returns the display tree of the filter step with the form's
// selection checked.
func (s *Server) GetWizardTree(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	st := readFormState(session)
	if err := requireSource(st); err != nil {
		s.writeErr(w, r, err)
		return
	}
	treeType := st.treeType
	if q := r.URL.Query().Get("treeType"); q != "" {
		treeType = inventory.ParseTreeType(q)
	}
	tree, err := s.Inventory.Tree(r.Context(), st.source, treeType)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	links := make([]string, 0, len(st.nodes))
	for _, n := range st.nodes {
		links = append(links, n.SelfLink())
	}
	writeJSON(w, http.StatusOK, treeView(tree, r.URL.Query().Get("search"), selectedNodes(tree, links)))
}

type mappingSourcesView struct {
	Type    mapping.Type          `json:"type"`
	Sources []mapping.Source      `json:"sources"`
	Targets []mapping.Target      `json:"targets"`
	Items   []mapping.BuilderItem `json:"items"`
}

// GetMappingSources returns the sources the selected VMs use, the available
// targets, and the step's builder items with an empty item for each source
// not yet mapped.
func (s *Server) GetMappingSources(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	t, err := mappingType(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	st := readFormState(session)
	res, err := wizard.LoadMappingResources(r.Context(), s.Inventory, st.source, st.target, t)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mappingSourcesView{
		Type:    t,
		Sources: mapping.FilterSourcesBySelectedVMs(res.Sources, st.selectedVMs, t),
		Targets: res.Targets,
		Items:   mapping.BuilderItemsWithMissingSources(st.items[t], res, st.selectedVMs, t, true),
	})
}

// SubmitWizard validates the plan name and starts a job writing the
// mappings and the plan.
func (s *Server) SubmitWizard(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if !session.PrefillStatus().IsDonePrefilling {
		writeError(w, http.StatusConflict, "wizard is still prefilling")
		return
	}
	sub := session.Submission()
	if pair := sub.Plan.Spec.Provider; pair.Source.Name == "" || pair.Destination.Name == "" {
		s.writeErr(w, r, errors.Wrap(wizard.ErrInvalid, "source and target providers must be chosen"))
		return
	}
	editing := session.Editing()
	if editing != nil && sub.Plan.Name != editing.Name {
		s.writeErr(w, r, errors.Wrapf(wizard.ErrInvalid, "plan %s cannot be renamed", editing.Name))
		return
	}
	plans, err := s.Kube.ListPlans(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := wizard.ValidatePlanName(sub.Plan.Name, plans, editing); err != nil {
		s.writeErr(w, r, err)
		return
	}

	jobType := "plan-create"
	if sub.Editing {
		jobType = "plan-update"
	}
	job := s.Jobs.Create(jobType, sub.Plan.Name)
	go s.runSubmission(job, sub)

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func (s *Server) runSubmission(job *models.Job, sub wizard.Submission) {
	ctx := job.Context()
	log := s.Log.WithFields(logrus.Fields{"job": job.ID, "plan": sub.Plan.Name})
	defer func() { s.Metrics.Job(job.Type, job.State()) }()
	if err := s.writeSubmission(ctx, job, sub); err != nil {
		job.AppendLog("ERROR: " + err.Error())
		job.Fail(err.Error())
		log.WithError(err).Warn("plan submission failed")
		return
	}
	s.Poller.Mutated()
	job.AppendLog("Done")
	job.Complete(sub.Plan.Name)
	log.Info("plan submitted")
}

func (s *Server) writeSubmission(ctx context.Context, job *models.Job, sub wizard.Submission) error {
	if sub.NetworkMap != nil {
		job.AppendLog(fmt.Sprintf("Creating network mapping %s", sub.NetworkMap.Name))
		if _, err := s.Kube.CreateNetworkMap(ctx, sub.NetworkMap); err != nil {
			return err
		}
	}
	if sub.StorageMap != nil {
		job.AppendLog(fmt.Sprintf("Creating storage mapping %s", sub.StorageMap.Name))
		if _, err := s.Kube.CreateStorageMap(ctx, sub.StorageMap); err != nil {
			return err
		}
	}
	if sub.Editing {
		job.AppendLog(fmt.Sprintf("Updating plan %s", sub.Plan.Name))
		_, err := s.Kube.PatchPlan(ctx, sub.Plan)
		return err
	}
	job.AppendLog(fmt.Sprintf("Creating plan %s", sub.Plan.Name))
	_, err := s.Kube.CreatePlan(ctx, sub.Plan)
	return err
}
