package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/kube"
	"github.com/rflorenc/vm-migration-console/internal/metrics"
	"github.com/rflorenc/vm-migration-console/internal/models"
	"github.com/rflorenc/vm-migration-console/internal/wizard"
)

const ns = kube.DefaultNamespace

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	fixtures, err := inventory.LoadFixtures("")
	require.NoError(t, err)
	client, err := kube.NewFake(ns, fixtures.Objects, nil)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	m := metrics.New()
	src := inventory.NewFixtureSource(fixtures)
	s := &Server{
		Inventory: src,
		Kube:      client,
		Sessions:  models.NewSessionStore(),
		Jobs:      models.NewJobStore(),
		Prefiller: &wizard.Prefiller{Source: src, Metrics: m, Log: log},
		Poller:    NewPoller(client, PollerConfig{Interval: time.Hour}, log),
		Metrics:   m,
		Log:       log,
	}
	ts := httptest.NewServer(NewRouter(s, nil))
	t.Cleanup(ts.Close)
	return ts, s
}

func do(t *testing.T, ts *httptest.Server, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

type jobView struct {
	ID     string   `json:"id"`
	Type   string   `json:"type"`
	Target string   `json:"target"`
	Status string   `json:"status"`
	Output []string `json:"output"`
}

func waitForJob(t *testing.T, s *Server, id string) *models.Job {
	t.Helper()
	job := s.Jobs.Get(id)
	require.NotNil(t, job)
	require.Eventually(t, job.Finished, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestHealthAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t)
	code, _ := do(t, ts, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)

	do(t, ts, http.MethodGet, "/api/plans", nil)
	code, body := do(t, ts, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestProviders(t *testing.T) {
	ts, _ := newTestServer(t)
	code, body := do(t, ts, http.MethodGet, "/api/providers", nil)
	require.Equal(t, http.StatusOK, code)
	providers := decode[inventory.Providers](t, body)
	require.NotNil(t, providers.Find("vcenter-1", ns))
	assert.Equal(t, inventory.ProviderOpenShift, providers.Find("host", ns).Type)
}

func TestListVMs_Filters(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"db-01", "legacy-app", "web-01", "web-02"}},
		{"?name=WEB", []string{"web-01", "web-02"}},
		{"?powerState=poweredOff", []string{"db-01"}},
		{"?concern=Critical,None", []string{"legacy-app", "web-02"}},
		{"?name=web&concern=Advisory", []string{"web-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			code, body := do(t, ts, http.MethodGet, "/api/providers/vsphere/vcenter-1/vms"+tt.query, nil)
			require.Equal(t, http.StatusOK, code)
			vms := decode[[]vmView](t, body)
			names := make([]string, 0, len(vms))
			for _, vm := range vms {
				names = append(names, vm.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	code, body := do(t, ts, http.MethodGet, "/api/providers/vsphere/vcenter-1/vms/filters", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"key":"powerState"`)
}

func TestUnknownProvider(t *testing.T) {
	ts, _ := newTestServer(t)
	for _, path := range []string{
		"/api/providers/openshift/vcenter-1/vms",
		"/api/providers/vsphere/nope/tree/host",
	} {
		code, body := do(t, ts, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, code, path)
		assert.Contains(t, string(body), "error")
	}
}

func TestGetTree(t *testing.T) {
	ts, _ := newTestServer(t)

	code, body := do(t, ts, http.MethodGet, "/api/providers/vsphere/vcenter-1/tree/host?selected=/providers/vsphere/vc-uid-1/hosts/host-1", nil)
	require.Equal(t, http.StatusOK, code)
	items := decode[[]inventory.TreeViewItem](t, body)
	require.Len(t, items, 1)
	assert.Equal(t, "All datacenters", items[0].Name)
	assert.Equal(t, inventory.Indeterminate, items[0].Check)

	code, body = do(t, ts, http.MethodGet, "/api/providers/vsphere/vcenter-1/tree/host?search=cluster%20b", nil)
	require.Equal(t, http.StatusOK, code)
	items = decode[[]inventory.TreeViewItem](t, body)
	require.Len(t, items[0].Children, 1)
	clusters := items[0].Children[0].Children
	require.Len(t, clusters, 1)
	assert.Equal(t, "Cluster B", clusters[0].Name)
}

func TestTreePathInfo(t *testing.T) {
	ts, _ := newTestServer(t)
	code, body := do(t, ts, http.MethodGet, "/api/providers/vsphere/vcenter-1/tree-path-info", nil)
	require.Equal(t, http.StatusOK, code)
	info := decode[map[string]inventory.TreePathInfo](t, body)
	require.Len(t, info, 4)

	vm1 := info["/providers/vsphere/vc-uid-1/vms/vm-1"]
	require.NotNil(t, vm1.Host)
	assert.Equal(t, "H1", vm1.Host.Name)
	require.NotNil(t, vm1.Cluster)
	assert.Equal(t, "Cluster A", vm1.Cluster.Name)
	assert.Equal(t, "Production/Web", vm1.FolderPath)
}

func TestNetworksAndDatastores(t *testing.T) {
	ts, _ := newTestServer(t)

	code, body := do(t, ts, http.MethodGet, "/api/providers/vsphere/vcenter-1/networks", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]inventory.Network](t, body), 2)

	code, body = do(t, ts, http.MethodGet, "/api/providers/openshift/host/networks", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]inventory.NetworkAttachmentDefinition](t, body), 2)

	code, body = do(t, ts, http.MethodGet, "/api/providers/openshift/host/datastores", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]inventory.StorageClass](t, body), 3)
}

func TestHosts(t *testing.T) {
	ts, s := newTestServer(t)

	code, body := do(t, ts, http.MethodGet, "/api/providers/vsphere/vcenter-1/hosts", nil)
	require.Equal(t, http.StatusOK, code)
	hosts := decode[[]hostView](t, body)
	require.Len(t, hosts, 3)
	assert.Equal(t, "VMkernel vMotion", hosts[0].Network)
	assert.NotNil(t, hosts[0].Config)
	assert.Equal(t, "Network not found", hosts[1].Network)

	code, body = do(t, ts, http.MethodPost, "/api/providers/vsphere/vcenter-1/hosts/prefill", hostSelection{HostIDs: []string{"host-1"}})
	require.Equal(t, http.StatusOK, code)
	var prefill struct {
		Form struct {
			SelectedNetworkAdapter struct {
				Value *inventory.HostNetworkAdapter `json:"value"`
			} `json:"selectedNetworkAdapter"`
			AdminUsername struct {
				Value string `json:"value"`
			} `json:"adminUsername"`
		} `json:"form"`
		NetworkAdapters []inventory.HostNetworkAdapter `json:"networkAdapters"`
	}
	require.NoError(t, json.Unmarshal(body, &prefill))
	require.NotNil(t, prefill.Form.SelectedNetworkAdapter.Value)
	assert.Equal(t, "VMkernel vMotion", prefill.Form.SelectedNetworkAdapter.Value.Name)
	assert.Equal(t, "root", prefill.Form.AdminUsername.Value)
	assert.Len(t, prefill.NetworkAdapters, 2)

	code, _ = do(t, ts, http.MethodPost, "/api/providers/vsphere/vcenter-1/hosts/prefill", hostSelection{HostIDs: []string{"nope"}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = do(t, ts, http.MethodPost, "/api/providers/vsphere/vcenter-1/hosts/network", hostNetworkRequest{
		HostIDs:        []string{"host-2", "host-3"},
		NetworkAdapter: "VMkernel vMotion",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, body = do(t, ts, http.MethodPost, "/api/providers/vsphere/vcenter-1/hosts/network", hostNetworkRequest{
		HostIDs:        []string{"host-2"},
		NetworkAdapter: "Management Network",
		AdminUsername:  "root",
		AdminPassword:  "pw",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	applied := decode[[]kube.Host](t, body)
	require.Len(t, applied, 1)
	assert.Equal(t, "10.0.0.12", applied[0].Spec.IPAddress)

	configs, err := s.Kube.ListHosts(context.Background())
	require.NoError(t, err)
	assert.Len(t, configs, 2)
	secret, err := s.Kube.GetSecret(context.Background(), "vcenter-1-host-2")
	require.NoError(t, err)
	assert.Equal(t, "pw", string(secret.Data["password"]))
}

func TestPlansCRUD(t *testing.T) {
	ts, _ := newTestServer(t)

	code, body := do(t, ts, http.MethodGet, "/api/plans", nil)
	require.Equal(t, http.StatusOK, code)
	plans := decode[[]planSummary](t, body)
	require.Len(t, plans, 2)
	assert.True(t, plans[0].Status.Ready)
	assert.Equal(t, "Running", plans[1].Status.Label)
	assert.Equal(t, "0 of 1 VMs migrated", plans[1].Status.Message)

	for _, name := range []string{"Bad_Name", "plantest-1", ""} {
		plan := kube.NewPlan(name, ns)
		code, _ = do(t, ts, http.MethodPost, "/api/plans", plan)
		assert.Equal(t, http.StatusUnprocessableEntity, code, name)
	}

	plan := kube.NewPlan("plantest-3", ns)
	plan.Spec.Description = "new"
	plan.Spec.VMs = []kube.PlanVM{{ID: "vm-2"}}
	code, body = do(t, ts, http.MethodPost, "/api/plans", plan)
	require.Equal(t, http.StatusCreated, code, string(body))

	code, body = do(t, ts, http.MethodGet, "/api/plans/plantest-3", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "new", decode[kube.Plan](t, body).Spec.Description)

	plan.Spec.Description = "changed"
	code, body = do(t, ts, http.MethodPatch, "/api/plans/plantest-3", plan)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Equal(t, "changed", decode[kube.Plan](t, body).Spec.Description)

	code, body = do(t, ts, http.MethodGet, "/api/plans/plantest-3/manifest", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "kind: Plan")
	assert.Contains(t, string(body), "name: plantest-3")

	code, body = do(t, ts, http.MethodGet, "/api/plans/plantest-2/status", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Running", decode[wizard.PlanStatus](t, body).Label)

	code, _ = do(t, ts, http.MethodDelete, "/api/plans/plantest-3", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = do(t, ts, http.MethodGet, "/api/plans/plantest-3", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, ts, http.MethodPatch, "/api/plans/plantest-3", plan)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMappings(t *testing.T) {
	ts, _ := newTestServer(t)

	code, body := do(t, ts, http.MethodGet, "/api/mappings/network", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]kube.NetworkMap](t, body), 1)

	code, _ = do(t, ts, http.MethodGet, "/api/mappings/bogus", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, ts, http.MethodDelete, "/api/mappings/storage/vcenter-1-storage", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, body = do(t, ts, http.MethodGet, "/api/mappings/storage", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]kube.StorageMap](t, body))
}

type formView struct {
	General struct {
		PlanName struct {
			Value string `json:"value"`
		} `json:"planName"`
	} `json:"general"`
	SelectVMs struct {
		SelectedVMs struct {
			Value []inventory.VM `json:"value"`
		} `json:"selectedVMs"`
	} `json:"selectVMs"`
}

func decodeView(t *testing.T, body []byte) (wizard.View, formView) {
	t.Helper()
	view := decode[wizard.View](t, body)
	return view, decode[formView](t, view.Form)
}

func TestWizard_CreatePlan(t *testing.T) {
	ts, s := newTestServer(t)

	code, body := do(t, ts, http.MethodPost, "/api/wizards", nil)
	require.Equal(t, http.StatusCreated, code, string(body))
	view, _ := decodeView(t, body)
	assert.True(t, view.Prefill.IsDonePrefilling)
	base := "/api/wizards/" + view.ID

	// Steps needing a source provider fail before one is chosen.
	code, _ = do(t, ts, http.MethodPut, base+"/select-vms", wizard.SelectVMsValues{VMIDs: []string{"vm-1"}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, body = do(t, ts, http.MethodPut, base+"/general", wizard.GeneralValues{
		PlanName:        "plan-new",
		SourceProvider:  &kube.ObjectRef{Name: "vcenter-1", Namespace: ns},
		TargetProvider:  &kube.ObjectRef{Name: "host", Namespace: ns},
		TargetNamespace: "web",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	_, form := decodeView(t, body)
	assert.Equal(t, "plan-new", form.General.PlanName.Value)

	code, _ = do(t, ts, http.MethodPut, base+"/general", wizard.GeneralValues{PlanName: "plantest-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, body = do(t, ts, http.MethodPut, base+"/filter-vms", wizard.FilterVMsValues{
		TreeType:      "host",
		SelectedNodes: []string{"/providers/vsphere/vc-uid-1/hosts/host-1"},
	})
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = do(t, ts, http.MethodGet, base+"/tree", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, inventory.Indeterminate, decode[[]inventory.TreeViewItem](t, body)[0].Check)

	code, _ = do(t, ts, http.MethodPut, base+"/select-vms", wizard.SelectVMsValues{VMIDs: []string{"vm-4"}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	code, body = do(t, ts, http.MethodPut, base+"/select-vms", wizard.SelectVMsValues{VMIDs: []string{"vm-1"}})
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = do(t, ts, http.MethodGet, base+"/mapping-sources/network", nil)
	require.Equal(t, http.StatusOK, code)
	sources := decode[mappingSourcesView](t, body)
	require.Len(t, sources.Sources, 1)
	assert.Equal(t, "network-1", sources.Sources[0].ID)
	require.Len(t, sources.Items, 1)
	assert.Nil(t, sources.Items[0].Target)
	assert.True(t, sources.Items[0].Highlight)

	code, body = do(t, ts, http.MethodPut, base+"/network-mapping", wizard.MappingValues{
		Items: []wizard.MappingItemValue{{SourceID: "network-1", Target: &wizard.TargetRef{Type: kube.NetworkTypePod}}},
	})
	require.Equal(t, http.StatusOK, code, string(body))
	code, body = do(t, ts, http.MethodPut, base+"/storage-mapping", wizard.MappingValues{
		Items:          []wizard.MappingItemValue{{SourceID: "datastore-1", Target: &wizard.TargetRef{Name: "standard"}}},
		SaveNewMapping: true,
		NewMappingName: "plan-new-storage",
	})
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = do(t, ts, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusAccepted, code, string(body))
	jobID := decode[map[string]string](t, body)["job_id"]
	job := waitForJob(t, s, jobID)
	require.Equal(t, models.JobCompleted, job.State(), job.Snapshot().Error)
	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		metrics, err := io.ReadAll(resp.Body)
		return err == nil && strings.Contains(string(metrics), `console_jobs_total{result="completed",type="plan-create"} 1`)
	}, 5*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	plan, err := s.Kube.GetPlan(ctx, "plan-new")
	require.NoError(t, err)
	assert.Equal(t, []kube.PlanVM{{ID: "vm-1"}}, plan.Spec.VMs)
	assert.Equal(t, "web", plan.Spec.TargetNamespace)
	require.Len(t, plan.Spec.Map.Networks, 1)
	assert.Equal(t, kube.NetworkTypePod, plan.Spec.Map.Networks[0].Destination.Type)
	require.Len(t, plan.Spec.Map.Datastores, 1)
	assert.Equal(t, "standard", plan.Spec.Map.Datastores[0].Destination.StorageClass)

	storageMaps, err := s.Kube.ListStorageMaps(ctx)
	require.NoError(t, err)
	assert.Len(t, storageMaps, 2)
	networkMaps, err := s.Kube.ListNetworkMaps(ctx)
	require.NoError(t, err)
	assert.Len(t, networkMaps, 1)

	// A second submit collides with the plan just created.
	code, _ = do(t, ts, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, body = do(t, ts, http.MethodGet, "/api/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "plan-new", decode[jobView](t, body).Target)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/jobs/" + jobID + "/logs"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	var lines []string
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())
			break
		}
		lines = append(lines, string(msg))
	}
	require.NotEmpty(t, lines)
	assert.Equal(t, "Creating storage mapping plan-new-storage", lines[0])
	assert.Equal(t, "Done", lines[len(lines)-1])
}

func TestWizard_EditPlan(t *testing.T) {
	ts, s := newTestServer(t)

	code, _ := do(t, ts, http.MethodPost, "/api/wizards", map[string]string{"editPlan": "nope"})
	assert.Equal(t, http.StatusNotFound, code)

	code, body := do(t, ts, http.MethodPost, "/api/wizards", map[string]string{"editPlan": "plantest-1"})
	require.Equal(t, http.StatusCreated, code, string(body))
	view, form := decodeView(t, body)
	assert.Equal(t, "plantest-1", view.EditPlan)
	assert.True(t, view.Prefill.IsDonePrefilling)
	assert.Equal(t, wizard.StatusSuccess, view.Prefill.Status)
	assert.Equal(t, "plantest-1", form.General.PlanName.Value)
	require.Len(t, form.SelectVMs.SelectedVMs.Value, 2)
	base := "/api/wizards/" + view.ID

	code, _ = do(t, ts, http.MethodPut, base+"/general", wizard.GeneralValues{PlanName: "plantest-2"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, body = do(t, ts, http.MethodPut, base+"/select-vms", wizard.SelectVMsValues{VMIDs: []string{"vm-3"}})
	require.Equal(t, http.StatusOK, code, string(body))
	code, body = do(t, ts, http.MethodPost, base+"/select-vms/reset", nil)
	require.Equal(t, http.StatusOK, code)
	_, form = decodeView(t, body)
	assert.Len(t, form.SelectVMs.SelectedVMs.Value, 2)

	code, _ = do(t, ts, http.MethodPost, base+"/prefill/retry", nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = do(t, ts, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusAccepted, code, string(body))
	job := waitForJob(t, s, decode[map[string]string](t, body)["job_id"])
	require.Equal(t, models.JobCompleted, job.State(), job.Snapshot().Error)
	assert.Equal(t, "plan-update", job.Type)

	plan, err := s.Kube.GetPlan(context.Background(), "plantest-1")
	require.NoError(t, err)
	assert.Equal(t, []kube.PlanVM{{ID: "vm-1"}, {ID: "vm-3"}}, plan.Spec.VMs)
	assert.Equal(t, "Web tier and database", plan.Spec.Description)

	code, _ = do(t, ts, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = do(t, ts, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestWizard_UnknownStep(t *testing.T) {
	ts, _ := newTestServer(t)
	code, body := do(t, ts, http.MethodPost, "/api/wizards", nil)
	require.Equal(t, http.StatusCreated, code)
	id := decode[wizard.View](t, body).ID

	code, _ = do(t, ts, http.MethodPut, "/api/wizards/"+id+"/bogus", map[string]string{})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, ts, http.MethodPost, "/api/wizards/"+id+"/prefill/retry", nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestCancelJob(t *testing.T) {
	ts, s := newTestServer(t)
	job := s.Jobs.Create("plan-create", "x")

	code, _ := do(t, ts, http.MethodPost, "/api/jobs/"+job.ID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, ts, http.MethodPost, "/api/jobs/"+job.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, body := do(t, ts, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, code)
	jobs := decode[[]jobView](t, body)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobCancelled, jobs[0].Status)
}
