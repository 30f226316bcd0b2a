package kube

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/rflorenc/vm-migration-console/internal/metrics"
)

// Client wraps a dynamic client for the migration resources and a typed
// clientset for secrets and storage classes. All namespaced calls use the
// namespace the client was created with.
type Client struct {
	dynamic   dynamic.Interface
	core      kubernetes.Interface
	namespace string
	metrics   *metrics.Metrics
}

// NewClient creates a Client from existing clients.
func NewClient(dyn dynamic.Interface, core kubernetes.Interface, namespace string, m *metrics.Metrics) *Client {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Client{dynamic: dyn, core: core, namespace: namespace, metrics: m}
}

// RESTConfig loads the given kubeconfig. With no path it tries the in-cluster
// config, then $KUBECONFIG, then ~/.kube/config.
func RESTConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
		kubeconfig = os.Getenv("KUBECONFIG")
	}
	if kubeconfig == "" {
		home, _ := os.UserHomeDir()
		kubeconfig = filepath.Join(home, ".kube", "config")
	}
	cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, errors.Wrapf(err, "loading kubeconfig %s", kubeconfig)
	}
	return cfg, nil
}

// NewForConfig builds both underlying clients from a REST config.
func NewForConfig(cfg *rest.Config, namespace string, m *metrics.Metrics) (*Client, error) {
	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating dynamic client")
	}
	core, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating clientset")
	}
	return NewClient(dyn, core, namespace, m), nil
}

// NewFake returns a Client backed by in-memory fake clients seeded with the
// given manifests. Secrets and StorageClasses go to the typed clientset,
// everything else to the dynamic client.
func NewFake(namespace string, manifests []map[string]interface{}, m *metrics.Metrics) (*Client, error) {
	var typed []runtime.Object
	var objects []*unstructured.Unstructured
	for i, manifest := range manifests {
		data, err := json.Marshal(manifest)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding object %d", i)
		}
		u := &unstructured.Unstructured{}
		if err := u.UnmarshalJSON(data); err != nil {
			return nil, errors.Wrapf(err, "decoding object %d", i)
		}
		if u.GetNamespace() == "" && u.GetKind() != "StorageClass" {
			u.SetNamespace(namespace)
		}
		switch u.GetKind() {
		case "Secret":
			secret := &corev1.Secret{}
			if err := json.Unmarshal(data, secret); err != nil {
				return nil, errors.Wrapf(err, "decoding secret %s", u.GetName())
			}
			secret.Namespace = u.GetNamespace()
			typed = append(typed, secret)
		case "StorageClass":
			sc := &storagev1.StorageClass{}
			if err := json.Unmarshal(data, sc); err != nil {
				return nil, errors.Wrapf(err, "decoding storage class %s", u.GetName())
			}
			typed = append(typed, sc)
		default:
			if _, ok := kindResources[u.GetKind()]; !ok {
				return nil, errors.Errorf("object %d: unsupported kind %q", i, u.GetKind())
			}
			objects = append(objects, u)
		}
	}

	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), listKinds)
	for _, u := range objects {
		gvr := kindResources[u.GetKind()]
		_, err := dyn.Resource(gvr).Namespace(u.GetNamespace()).Create(context.Background(), u, metav1.CreateOptions{})
		if err != nil {
			return nil, errors.Wrapf(err, "seeding %s %s", u.GetKind(), u.GetName())
		}
	}
	return NewClient(dyn, k8sfake.NewSimpleClientset(typed...), namespace, m), nil
}

// Namespace returns the namespace the client operates in.
func (c *Client) Namespace() string {
	return c.namespace
}

func toUnstructured(obj interface{}) (*unstructured.Unstructured, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, errors.Wrap(err, "converting to unstructured")
	}
	return &unstructured.Unstructured{Object: content}, nil
}

func fromUnstructured(u *unstructured.Unstructured, obj interface{}) error {
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, obj); err != nil {
		return errors.Wrapf(err, "converting %s %s", u.GetKind(), u.GetName())
	}
	return nil
}

func list[T any](ctx context.Context, c *Client, gvr schema.GroupVersionResource, namespace string) ([]T, error) {
	ul, err := c.dynamic.Resource(gvr).Namespace(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", gvr.Resource)
	}
	sort.Slice(ul.Items, func(i, j int) bool { return ul.Items[i].GetName() < ul.Items[j].GetName() })
	items := make([]T, 0, len(ul.Items))
	for i := range ul.Items {
		var item T
		if err := fromUnstructured(&ul.Items[i], &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func get[T any](ctx context.Context, c *Client, gvr schema.GroupVersionResource, name string) (*T, error) {
	u, err := c.dynamic.Resource(gvr).Namespace(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "getting %s %s", gvr.Resource, name)
	}
	var item T
	if err := fromUnstructured(u, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// checkIfResourceExists returns an AlreadyExists status error when an object
// of that name is present.
func (c *Client) checkIfResourceExists(ctx context.Context, gvr schema.GroupVersionResource, name string) error {
	_, err := c.dynamic.Resource(gvr).Namespace(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		return alreadyExists(gvr, name)
	}
	if isNotFound(err) {
		return nil
	}
	return errors.Wrapf(err, "checking %s %s", gvr.Resource, name)
}

func create[T any](ctx context.Context, c *Client, gvr schema.GroupVersionResource, name string, obj interface{}) (*T, error) {
	if err := c.checkIfResourceExists(ctx, gvr, name); err != nil {
		return nil, err
	}
	u, err := toUnstructured(obj)
	if err != nil {
		return nil, err
	}
	u.SetNamespace(c.namespace)
	created, err := c.dynamic.Resource(gvr).Namespace(c.namespace).Create(ctx, u, metav1.CreateOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s %s", gvr.Resource, name)
	}
	var item T
	if err := fromUnstructured(created, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func patch[T any](ctx context.Context, c *Client, gvr schema.GroupVersionResource, name string, body interface{}) (*T, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encoding patch")
	}
	patched, err := c.dynamic.Resource(gvr).Namespace(c.namespace).Patch(ctx, name, types.MergePatchType, data, metav1.PatchOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "patching %s %s", gvr.Resource, name)
	}
	var item T
	if err := fromUnstructured(patched, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) delete(ctx context.Context, gvr schema.GroupVersionResource, name string) error {
	if err := c.dynamic.Resource(gvr).Namespace(c.namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil {
		return errors.Wrapf(err, "deleting %s %s", gvr.Resource, name)
	}
	return nil
}
