package kube

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
)

const testNamespace = "openshift-migration"

func newTestClient(t *testing.T, objects ...map[string]interface{}) *Client {
	t.Helper()
	c, err := NewFake(testNamespace, objects, nil)
	require.NoError(t, err)
	return c
}

func planManifest(name string, vmIDs ...string) map[string]interface{} {
	vms := []interface{}{}
	for _, id := range vmIDs {
		vms = append(vms, map[string]interface{}{"id": id})
	}
	return map[string]interface{}{
		"apiVersion": APIVersion,
		"kind":       "Plan",
		"metadata":   map[string]interface{}{"name": name},
		"spec": map[string]interface{}{
			"description": "",
			"provider": map[string]interface{}{
				"source":      map[string]interface{}{"name": "vcenter-1", "namespace": testNamespace},
				"destination": map[string]interface{}{"name": "host", "namespace": testNamespace},
			},
			"targetNamespace": "default",
			"map": map[string]interface{}{
				"networks": []interface{}{
					map[string]interface{}{
						"source":      map[string]interface{}{"id": "network-1"},
						"destination": map[string]interface{}{"type": "pod"},
					},
				},
				"datastores": []interface{}{},
			},
			"vms": vms,
		},
	}
}

func testPlan(name string) *Plan {
	plan := NewPlan(name, testNamespace)
	plan.Spec = PlanSpec{
		Description: "move web tier",
		Provider: ProviderPair{
			Source:      ObjectRef{Name: "vcenter-1", Namespace: testNamespace},
			Destination: ObjectRef{Name: "host", Namespace: testNamespace},
		},
		TargetNamespace: "web",
		Map: PlanMap{
			Networks:   []NetworkPair{{Source: SourceRef{ID: "network-1"}, Destination: NetworkDestination{Type: NetworkTypePod}}},
			Datastores: []StoragePair{{Source: SourceRef{ID: "datastore-1"}, Destination: StorageDestination{StorageClass: "standard"}}},
		},
		VMs: []PlanVM{{ID: "vm-1"}, {ID: "vm-2"}},
	}
	return plan
}

func TestListPlans_SortedByName(t *testing.T) {
	c := newTestClient(t, planManifest("zeta", "vm-9"), planManifest("alpha", "vm-1", "vm-2"))

	plans, err := c.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "alpha", plans[0].Name)
	assert.Equal(t, "zeta", plans[1].Name)
	assert.Equal(t, []PlanVM{{ID: "vm-1"}, {ID: "vm-2"}}, plans[0].Spec.VMs)
	assert.Equal(t, NetworkTypePod, plans[0].Spec.Map.Networks[0].Destination.Type)
}

func TestCreatePlan_RejectsExistingName(t *testing.T) {
	c := newTestClient(t, planManifest("existing"))

	_, err := c.CreatePlan(context.Background(), testPlan("existing"))
	require.Error(t, err)
	assert.True(t, apierrors.IsAlreadyExists(err))

	code, ok := HTTPStatus(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, code)
}

func TestCreatePatchDeletePlan(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	created, err := c.CreatePlan(ctx, testPlan("web"))
	require.NoError(t, err)
	assert.Equal(t, testNamespace, created.Namespace)
	assert.Equal(t, "web", created.Spec.TargetNamespace)

	edit := testPlan("web")
	edit.Spec.Description = "edited"
	edit.Spec.VMs = []PlanVM{{ID: "vm-3"}}
	_, err = c.PatchPlan(ctx, edit)
	require.NoError(t, err)

	got, err := c.GetPlan(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Spec.Description)
	assert.Equal(t, []PlanVM{{ID: "vm-3"}}, got.Spec.VMs)
	assert.Equal(t, "standard", got.Spec.Map.Datastores[0].Destination.StorageClass)

	require.NoError(t, c.DeletePlan(ctx, "web"))
	_, err = c.GetPlan(ctx, "web")
	assert.True(t, apierrors.IsNotFound(err))
}

func TestMappings(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	nm := NewNetworkMap("vcenter-1-net", testNamespace)
	nm.Spec.Map = []NetworkPair{{Source: SourceRef{ID: "network-2"}, Destination: NetworkDestination{Type: NetworkTypeMultus, Name: "br1", Namespace: "default"}}}
	_, err := c.CreateNetworkMap(ctx, nm)
	require.NoError(t, err)

	sm := NewStorageMap("vcenter-1-storage", testNamespace)
	sm.Spec.Map = []StoragePair{{Source: SourceRef{ID: "datastore-1"}, Destination: StorageDestination{StorageClass: "large"}}}
	_, err = c.CreateStorageMap(ctx, sm)
	require.NoError(t, err)

	nms, err := c.ListNetworkMaps(ctx)
	require.NoError(t, err)
	require.Len(t, nms, 1)
	assert.Equal(t, "br1", nms[0].Spec.Map[0].Destination.Name)

	require.NoError(t, c.DeleteStorageMap(ctx, "vcenter-1-storage"))
	sms, err := c.ListStorageMaps(ctx)
	require.NoError(t, err)
	assert.Empty(t, sms)
}

func TestSecrets(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Secret",
		"metadata":   map[string]interface{}{"name": "esx-creds"},
		"data":       map[string]interface{}{"user": "cm9vdA==", "password": "c2VjcmV0"},
	})

	secret, err := c.GetSecret(ctx, "esx-creds")
	require.NoError(t, err)
	assert.Equal(t, "root", string(secret.Data["user"]))
	assert.Equal(t, "secret", string(secret.Data["password"]))

	_, err = c.ApplySecret(ctx, &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "esx-creds"},
		Data:       map[string][]byte{"user": []byte("admin"), "password": []byte("pw")},
	})
	require.NoError(t, err)
	secret, err = c.GetSecret(ctx, "esx-creds")
	require.NoError(t, err)
	assert.Equal(t, "admin", string(secret.Data["user"]))

	_, err = c.GetSecret(ctx, "missing")
	assert.True(t, apierrors.IsNotFound(err))
}

func TestApplyHost(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	host := NewHost("vcenter-1-host-1", testNamespace)
	host.Spec = HostSpec{ID: "host-1", IPAddress: "10.0.0.1", Provider: ObjectRef{Name: "vcenter-1", Namespace: testNamespace}}
	_, err := c.ApplyHost(ctx, host)
	require.NoError(t, err)

	host.Spec.IPAddress = "10.0.0.2"
	host.Spec.Secret = &ObjectRef{Name: "esx-creds", Namespace: testNamespace}
	_, err = c.ApplyHost(ctx, host)
	require.NoError(t, err)

	hosts, err := c.ListHosts(ctx)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "10.0.0.2", hosts[0].Spec.IPAddress)
	assert.Equal(t, "esx-creds", hosts[0].Spec.Secret.Name)
}

func TestNewFake_UnknownKind(t *testing.T) {
	_, err := NewFake(testNamespace, []map[string]interface{}{{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata":   map[string]interface{}{"name": "x"},
	}}, nil)
	assert.Error(t, err)
}

func TestTargetInventory(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t,
		map[string]interface{}{
			"apiVersion": APIVersion,
			"kind":       "Provider",
			"metadata":   map[string]interface{}{"name": "host", "uid": "ocp-uid"},
			"spec":       map[string]interface{}{"type": "openshift"},
		},
		map[string]interface{}{
			"apiVersion": APIVersion,
			"kind":       "Provider",
			"metadata":   map[string]interface{}{"name": "vcenter-1", "uid": "vc-uid"},
			"spec":       map[string]interface{}{"type": "vsphere", "url": "https://vcenter.example.com/sdk"},
		},
		map[string]interface{}{
			"apiVersion": "k8s.cni.cncf.io/v1",
			"kind":       "NetworkAttachmentDefinition",
			"metadata":   map[string]interface{}{"name": "br1", "namespace": "default", "uid": "nad-1"},
		},
		map[string]interface{}{
			"apiVersion":  "storage.k8s.io/v1",
			"kind":        "StorageClass",
			"metadata":    map[string]interface{}{"name": "standard", "uid": "sc-1"},
			"provisioner": "kubernetes.io/no-provisioner",
		},
	)
	target := NewTargetInventory(c)

	providers, err := target.Providers(ctx)
	require.NoError(t, err)
	require.Len(t, providers[inventory.ProviderOpenShift], 1)
	p := providers[inventory.ProviderOpenShift][0]
	assert.Equal(t, "host", p.Name)
	assert.Equal(t, "/providers/openshift/ocp-uid", p.SelfLink)
	assert.Empty(t, providers[inventory.ProviderVSphere])

	nads, err := target.NetworkAttachmentDefinitions(ctx, &p)
	require.NoError(t, err)
	require.Len(t, nads, 1)
	assert.Equal(t, "default", nads[0].Namespace)
	assert.Equal(t, "/providers/openshift/ocp-uid/networkattachmentdefinitions/nad-1", nads[0].SelfLink)

	scs, err := target.StorageClasses(ctx, &p)
	require.NoError(t, err)
	require.Len(t, scs, 1)
	assert.Equal(t, "standard", scs[0].Name)

	_, err = target.VMs(ctx, &p)
	assert.ErrorIs(t, err, inventory.ErrUnsupported)
}

func TestLatestMigration(t *testing.T) {
	now := time.Now()
	migrations := []Migration{
		{ObjectMeta: metav1.ObjectMeta{Name: "m1", CreationTimestamp: metav1.NewTime(now.Add(-time.Hour))}, Spec: MigrationSpec{Plan: ObjectRef{Name: "web"}}},
		{ObjectMeta: metav1.ObjectMeta{Name: "m2", CreationTimestamp: metav1.NewTime(now)}, Spec: MigrationSpec{Plan: ObjectRef{Name: "web"}}},
		{ObjectMeta: metav1.ObjectMeta{Name: "m3", CreationTimestamp: metav1.NewTime(now.Add(time.Hour))}, Spec: MigrationSpec{Plan: ObjectRef{Name: "db"}}},
	}
	assert.Equal(t, "m2", LatestMigration(migrations, "web").Name)
	assert.Nil(t, LatestMigration(migrations, "other"))
}

func TestManifest(t *testing.T) {
	plan := testPlan("web")
	plan.Status.Conditions = []Condition{{Type: "Ready", Status: "True"}}

	data, err := Manifest(plan)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "kind: Plan")
	assert.Contains(t, out, "apiVersion: forklift.konveyor.io/v1alpha1")
	assert.Contains(t, out, "storageClass: standard")
	assert.NotContains(t, out, "Ready")
}
