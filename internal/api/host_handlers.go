package api

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rflorenc/vm-migration-console/internal/hostconfig"
	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/wizard"
)

type hostSelection struct {
	HostIDs []string `json:"hostIds"`
}

func pickHosts(hosts []inventory.Host, ids []string) ([]inventory.Host, error) {
	if len(ids) == 0 {
		return nil, errors.Wrap(wizard.ErrInvalid, "no hosts selected")
	}
	byID := make(map[string]inventory.Host, len(hosts))
	for _, h := range hosts {
		byID[h.ID] = h
	}
	picked := make([]inventory.Host, 0, len(ids))
	for _, id := range ids {
		h, ok := byID[id]
		if !ok {
			return nil, errors.Wrapf(wizard.ErrInvalid, "unknown host %s", id)
		}
		picked = append(picked, h)
	}
	return picked, nil
}

func (s *Server) selectedHosts(r *http.Request, p *inventory.Provider, ids []string) ([]inventory.Host, error) {
	hosts, err := s.Inventory.Hosts(r.Context(), p)
	if err != nil {
		return nil, err
	}
	return pickHosts(hosts, ids)
}

func hasAdapter(adapters []inventory.HostNetworkAdapter, name string) bool {
	for _, a := range adapters {
		if a.Name == name {
			return true
		}
	}
	return false
}

type hostPrefillView struct {
	Form            *hostconfig.Form               `json:"form"`
	NetworkAdapters []inventory.HostNetworkAdapter `json:"networkAdapters"`
	Hosts           []hostView                     `json:"hosts"`
}

// PrefillHostNetwork returns the host network form for the selected hosts,
// prefilled from their existing configs.
func (s *Server) PrefillHostNetwork(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req hostSelection
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	hosts, err := s.selectedHosts(r, p, req.HostIDs)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	configs, err := s.Kube.ListHosts(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	f := &hostconfig.Form{}
	var prefiller hostconfig.Prefiller
	if err := prefiller.Run(r.Context(), f, hosts, configs, p, s.Kube); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hostPrefillView{
		Form:            f,
		NetworkAdapters: hostconfig.CommonNetworkAdapters(hosts),
		Hosts:           hostViews(hosts, configs, p),
	})
}

type hostNetworkRequest struct {
	HostIDs        []string `json:"hostIds"`
	NetworkAdapter string   `json:"networkAdapter"`
	AdminUsername  string   `json:"adminUsername"`
	AdminPassword  string   `json:"adminPassword"`
}

// ApplyHostNetwork stores the chosen network and credentials for every
// selected host.
func (s *Server) ApplyHostNetwork(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req hostNetworkRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if req.NetworkAdapter == "" {
		s.writeErr(w, r, errors.Wrap(wizard.ErrInvalid, "a network adapter is required"))
		return
	}
	hosts, err := s.selectedHosts(r, p, req.HostIDs)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if !hasAdapter(hostconfig.CommonNetworkAdapters(hosts), req.NetworkAdapter) {
		s.writeErr(w, r, errors.Wrapf(wizard.ErrInvalid, "network %q is not on every selected host", req.NetworkAdapter))
		return
	}
	applied, err := hostconfig.ApplyHostNetwork(r.Context(), s.Kube, p, hosts, hostconfig.Selection{
		AdapterName: req.NetworkAdapter,
		Username:    req.AdminUsername,
		Password:    req.AdminPassword,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.Log.WithFields(logrus.Fields{"provider": p.Name, "hosts": len(applied), "network": req.NetworkAdapter}).Info("configured host network")
	writeJSON(w, http.StatusOK, applied)
}
