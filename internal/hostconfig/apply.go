package hostconfig

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/kube"
)

// Store writes host configs and their credentials.
type Store interface {
	SecretGetter
	ApplySecret(ctx context.Context, secret *corev1.Secret) (*corev1.Secret, error)
	ApplyHost(ctx context.Context, host *kube.Host) (*kube.Host, error)
}

// Selection is the submitted host network form.
type Selection struct {
	AdapterName string
	Username    string
	Password    string
}

// ConfigName is the name of the Host resource and credentials Secret of a host.
func ConfigName(provider *inventory.Provider, host inventory.Host) string {
	return fmt.Sprintf("%s-%s", provider.Name, host.ID)
}

// ApplyHostNetwork stores the selection for every host: a Secret with the
// credentials and a Host resource pointing at the address of the chosen
// adapter on that host.
func ApplyHostNetwork(ctx context.Context, store Store, provider *inventory.Provider, hosts []inventory.Host, sel Selection) ([]kube.Host, error) {
	if provider == nil {
		return nil, errors.New("no provider")
	}
	applied := make([]kube.Host, 0, len(hosts))
	for _, host := range hosts {
		adapter := adapterNamed(host, sel.AdapterName)
		if adapter == nil {
			return applied, errors.Errorf("host %s has no network %q", host.Name, sel.AdapterName)
		}
		name := ConfigName(provider, host)

		secret := &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Name:   name,
				Labels: map[string]string{"createdForResourceType": "hosts", "createdForResource": host.ID},
			},
			Type: corev1.SecretTypeOpaque,
			Data: map[string][]byte{
				"user":     []byte(sel.Username),
				"password": []byte(sel.Password),
			},
		}
		secret, err := store.ApplySecret(ctx, secret)
		if err != nil {
			return applied, errors.Wrapf(err, "storing credentials of host %s", host.Name)
		}

		config := kube.NewHost(name, secret.Namespace)
		config.Spec = kube.HostSpec{
			ID:        host.ID,
			IPAddress: adapter.IPAddress,
			Provider:  kube.ObjectRef{Name: provider.Name, Namespace: provider.Namespace},
			Secret:    &kube.ObjectRef{Name: secret.Name, Namespace: secret.Namespace},
		}
		result, err := store.ApplyHost(ctx, config)
		if err != nil {
			return applied, errors.Wrapf(err, "configuring host %s", host.Name)
		}
		applied = append(applied, *result)
	}
	return applied, nil
}
