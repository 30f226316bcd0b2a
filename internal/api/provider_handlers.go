package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/rflorenc/vm-migration-console/internal/filter"
	"github.com/rflorenc/vm-migration-console/internal/hostconfig"
	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/kube"
)

// provider resolves the {type}/{name} route parameters in the console
// namespace.
func (s *Server) provider(r *http.Request) (*inventory.Provider, error) {
	providers, err := s.Inventory.Providers(r.Context())
	if err != nil {
		return nil, err
	}
	t := inventory.ProviderType(chi.URLParam(r, "type"))
	name := chi.URLParam(r, "name")
	p := providers.Find(name, s.namespace())
	if p == nil || p.Type != t {
		return nil, errors.Wrapf(errNotFound, "provider %s/%s", t, name)
	}
	return p, nil
}

func (s *Server) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.Inventory.Providers(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, providers)
}

// vmCategories are the filters of the VM table.
var vmCategories = []filter.Category[inventory.VM]{
	{
		Key:         "name",
		Title:       "Name",
		Type:        filter.TypeSearch,
		Placeholder: "Filter by name...",
		Value:       func(vm inventory.VM) string { return vm.Name },
	},
	{
		Key:   "powerState",
		Title: "Power state",
		Type:  filter.TypeSelect,
		Options: []filter.Option{
			{Key: "poweredOn", Value: "Powered on"},
			{Key: "poweredOff", Value: "Powered off"},
			{Key: "suspended", Value: "Suspended"},
		},
		Value: func(vm inventory.VM) string { return vm.PowerState },
	},
	{
		Key:   "concern",
		Title: "Concerns",
		Type:  filter.TypeSelect,
		Options: []filter.Option{
			{Key: string(inventory.SeverityCritical), Value: "Critical"},
			{Key: string(inventory.SeverityWarning), Value: "Warning"},
			{Key: string(inventory.SeverityAdvisory), Value: "Advisory"},
			{Key: "None", Value: "No concerns"},
		},
		Value: func(vm inventory.VM) string {
			if c := inventory.MostSevereConcern(vm); c != nil {
				return string(c.Severity)
			}
			return "None"
		},
	},
}

type vmView struct {
	inventory.VM
	MostSevereConcern *inventory.Concern `json:"mostSevereConcern"`
}

func (s *Server) ListVMs(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	vms, err := s.Inventory.VMs(r.Context(), p)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	vms = filter.Apply(vms, vmCategories, filter.ValuesFromQuery(r.URL.Query(), vmCategories))
	views := make([]vmView, 0, len(vms))
	for _, vm := range vms {
		views = append(views, vmView{VM: vm, MostSevereConcern: inventory.MostSevereConcern(vm)})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) VMFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, filter.Toolbar(vmCategories))
}

// selectedNodes returns the nodes of tree with the given self links. Unknown
// links are ignored.
func selectedNodes(tree *inventory.Tree, links []string) []*inventory.Tree {
	want := make(map[string]struct{}, len(links))
	for _, l := range links {
		if l != "" {
			want[l] = struct{}{}
		}
	}
	nodes := []*inventory.Tree{}
	for _, node := range inventory.FlattenTreeNodes(tree) {
		if _, ok := want[node.SelfLink()]; ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func treeView(tree *inventory.Tree, search string, selected []*inventory.Tree) []inventory.TreeViewItem {
	all := len(selected) > 0 && len(selected) == len(inventory.FlattenTreeNodes(tree))
	return inventory.FilterAndConvertTree(tree, search, inventory.SelectedBySelfLink(selected), all)
}

// GetTree returns the display tree. ?search= filters by node name and
// ?selected= lists the self links of checked nodes.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	tree, err := s.Inventory.Tree(r.Context(), p, inventory.ParseTreeType(chi.URLParam(r, "treeType")))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, treeView(tree, q.Get("search"), selectedNodes(tree, splitList(q["selected"]))))
}

type pathInputs struct {
	vms      []inventory.VM
	hostTree *inventory.Tree
	vmTree   *inventory.Tree
}

func (s *Server) loadPathInputs(ctx context.Context, p *inventory.Provider) (pathInputs, error) {
	var in pathInputs
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.vms, err = s.Inventory.VMs(ctx, p)
		return err
	})
	g.Go(func() (err error) {
		in.hostTree, err = s.Inventory.Tree(ctx, p, inventory.TreeTypeHost)
		return err
	})
	g.Go(func() (err error) {
		in.vmTree, err = s.Inventory.Tree(ctx, p, inventory.TreeTypeVM)
		return err
	})
	return in, g.Wait()
}

// GetTreePathInfo returns the datacenter, cluster, host and folders of every
// VM, keyed by VM self link.
func (s *Server) GetTreePathInfo(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	in, err := s.loadPathInputs(r.Context(), p)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inventory.TreePathInfoByVM(in.vms, in.hostTree, in.vmTree))
}

func (s *Server) ListNetworks(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if p.Type == inventory.ProviderOpenShift {
		nads, err := s.Inventory.NetworkAttachmentDefinitions(r.Context(), p)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nads)
		return
	}
	networks, err := s.Inventory.Networks(r.Context(), p)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, networks)
}

func (s *Server) ListDatastores(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if p.Type == inventory.ProviderOpenShift {
		classes, err := s.Inventory.StorageClasses(r.Context(), p)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, classes)
		return
	}
	datastores, err := s.Inventory.Datastores(r.Context(), p)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, datastores)
}

type hostView struct {
	inventory.Host
	Config  *kube.Host `json:"config"`
	Network string     `json:"network"`
}

// ListHosts returns the ESXi hosts with their migration network config.
func (s *Server) ListHosts(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	hosts, err := s.Inventory.Hosts(r.Context(), p)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	configs, err := s.Kube.ListHosts(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hostViews(hosts, configs, p))
}

func hostViews(hosts []inventory.Host, configs []kube.Host, p *inventory.Provider) []hostView {
	existing := hostconfig.ExistingHostConfigs(hosts, configs, p)
	views := make([]hostView, 0, len(hosts))
	for i, host := range hosts {
		views = append(views, hostView{
			Host:    host,
			Config:  existing[i],
			Network: hostconfig.FormatHostNetworkAdapter(hostconfig.FindSelectedNetworkAdapter(host, existing[i])),
		})
	}
	return views
}
