package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rflorenc/vm-migration-console/internal/kube"
	"github.com/rflorenc/vm-migration-console/internal/mapping"
	"github.com/rflorenc/vm-migration-console/internal/wizard"
)

type planSummary struct {
	Plan   kube.Plan         `json:"plan"`
	Status wizard.PlanStatus `json:"status"`
}

// ListPlans returns every plan with its computed status.
func (s *Server) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.Kube.ListPlans(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	migrations, err := s.Kube.ListMigrations(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	statuses := wizard.ComputePlanStatuses(plans, migrations)
	result := make([]planSummary, 0, len(plans))
	for i := range plans {
		result = append(result, planSummary{Plan: plans[i], Status: statuses[i]})
	}
	writeJSON(w, http.StatusOK, result)
}

// CreatePlan creates a plan from a complete resource body.
func (s *Server) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var in kube.Plan
	if err := decodeJSON(r, &in); err != nil {
		s.writeErr(w, r, err)
		return
	}
	plans, err := s.Kube.ListPlans(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := wizard.ValidatePlanName(in.Name, plans, nil); err != nil {
		s.writeErr(w, r, err)
		return
	}
	plan := kube.NewPlan(in.Name, s.namespace())
	plan.Labels = in.Labels
	plan.Annotations = in.Annotations
	plan.Spec = in.Spec
	created, err := s.Kube.CreatePlan(r.Context(), plan)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.Poller.Mutated()
	s.Log.WithField("plan", created.Name).Info("created plan")
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.Kube.GetPlan(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// PatchPlan replaces the spec of a plan.
func (s *Server) PatchPlan(w http.ResponseWriter, r *http.Request) {
	var in kube.Plan
	if err := decodeJSON(r, &in); err != nil {
		s.writeErr(w, r, err)
		return
	}
	plan := kube.NewPlan(chi.URLParam(r, "name"), s.namespace())
	plan.Spec = in.Spec
	patched, err := s.Kube.PatchPlan(r.Context(), plan)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.Poller.Mutated()
	s.Log.WithField("plan", patched.Name).Info("updated plan")
	writeJSON(w, http.StatusOK, patched)
}

func (s *Server) DeletePlan(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.Kube.DeletePlan(r.Context(), name); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.Poller.Mutated()
	s.Log.WithField("plan", name).Info("deleted plan")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetPlanStatus(w http.ResponseWriter, r *http.Request) {
	plan, err := s.Kube.GetPlan(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	migrations, err := s.Kube.ListMigrations(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wizard.ComputePlanStatus(plan, kube.LatestMigration(migrations, plan.Name)))
}

// GetPlanManifest returns the plan as YAML.
func (s *Server) GetPlanManifest(w http.ResponseWriter, r *http.Request) {
	plan, err := s.Kube.GetPlan(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	data, err := kube.Manifest(plan)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func mappingType(r *http.Request) (mapping.Type, error) {
	raw := chi.URLParam(r, "type")
	t, ok := mapping.ParseType(raw)
	if !ok {
		return "", errors.Wrapf(errNotFound, "mapping type %q", raw)
	}
	return t, nil
}

func (s *Server) ListMappings(w http.ResponseWriter, r *http.Request) {
	t, err := mappingType(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if t == mapping.Network {
		maps, err := s.Kube.ListNetworkMaps(r.Context())
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, maps)
		return
	}
	maps, err := s.Kube.ListStorageMaps(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, maps)
}

func (s *Server) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	t, err := mappingType(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	name := chi.URLParam(r, "name")
	if t == mapping.Network {
		err = s.Kube.DeleteNetworkMap(r.Context(), name)
	} else {
		err = s.Kube.DeleteStorageMap(r.Context(), name)
	}
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.Log.WithFields(logrus.Fields{"mapping": name, "type": t}).Info("deleted mapping")
	w.WriteHeader(http.StatusNoContent)
}
