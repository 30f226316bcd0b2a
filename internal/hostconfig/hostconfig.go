// Package hostconfig selects the ESXi network used to transfer VM disks from
// each host, and the credentials used to reach the host on it.
package hostconfig

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"

	"github.com/rflorenc/vm-migration-console/internal/form"
	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/kube"
)

// ConfigMatchesHost reports whether config belongs to host of provider.
func ConfigMatchesHost(config kube.Host, host inventory.Host, provider *inventory.Provider) bool {
	return config.Spec.ID == host.ID &&
		config.Spec.Provider.Name == provider.Name &&
		config.Spec.Provider.Namespace == provider.Namespace
}

// FindHostConfig returns the first config of host, or nil.
func FindHostConfig(host inventory.Host, configs []kube.Host, provider *inventory.Provider) *kube.Host {
	if provider == nil {
		return nil
	}
	for i := range configs {
		if ConfigMatchesHost(configs[i], host, provider) {
			return &configs[i]
		}
	}
	return nil
}

// FindSelectedNetworkAdapter returns the adapter of host whose address is the
// one config selects.
func FindSelectedNetworkAdapter(host inventory.Host, config *kube.Host) *inventory.HostNetworkAdapter {
	if config == nil {
		return nil
	}
	for i := range host.NetworkAdapters {
		if host.NetworkAdapters[i].IPAddress == config.Spec.IPAddress {
			return &host.NetworkAdapters[i]
		}
	}
	return nil
}

func FormatHostNetworkAdapter(adapter *inventory.HostNetworkAdapter) string {
	if adapter == nil {
		return "Network not found"
	}
	return adapter.Name
}

// ExistingHostConfigs returns the config of each host, nil where a host has
// none.
func ExistingHostConfigs(hosts []inventory.Host, configs []kube.Host, provider *inventory.Provider) []*kube.Host {
	result := make([]*kube.Host, len(hosts))
	for i, host := range hosts {
		result[i] = FindHostConfig(host, configs, provider)
	}
	return result
}

// CommonNetworkAdapters returns the adapters of the first host whose name
// every other host also has.
func CommonNetworkAdapters(hosts []inventory.Host) []inventory.HostNetworkAdapter {
	common := []inventory.HostNetworkAdapter{}
	if len(hosts) == 0 {
		return common
	}
	for _, adapter := range hosts[0].NetworkAdapters {
		shared := true
		for _, host := range hosts[1:] {
			if adapterNamed(host, adapter.Name) == nil {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, adapter)
		}
	}
	return common
}

func adapterNamed(host inventory.Host, name string) *inventory.HostNetworkAdapter {
	for i := range host.NetworkAdapters {
		if host.NetworkAdapters[i].Name == name {
			return &host.NetworkAdapters[i]
		}
	}
	return nil
}

// Form is the state of the host network selection.
type Form struct {
	SelectedNetworkAdapter form.Field[*inventory.HostNetworkAdapter] `json:"selectedNetworkAdapter"`
	AdminUsername          form.Field[string]                        `json:"adminUsername"`
	AdminPassword          form.Field[string]                        `json:"adminPassword"`
}

// SecretGetter fetches a secret by name.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (*corev1.Secret, error)
}

// Prefiller fills a Form from the existing configs of the selected hosts.
// It runs once; later calls are no-ops.
type Prefiller struct {
	mu      sync.Mutex
	started bool
	done    bool
}

// Done reports whether the form has been prefilled.
func (p *Prefiller) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Run prefills f. The credentials are read from the secret of the host config
// when exactly one host is selected. The adapter is only preselected when
// every selected host is configured on the same address. A failed secret
// fetch leaves the prefill not started so it can be retried.
func (p *Prefiller) Run(ctx context.Context, f *Form, hosts []inventory.Host, configs []kube.Host, provider *inventory.Provider, secrets SecretGetter) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	existing := ExistingHostConfigs(hosts, configs, provider)
	var secretName string
	if len(hosts) == 1 && existing[0] != nil && existing[0].Spec.Secret != nil {
		secretName = existing[0].Spec.Secret.Name
	}
	var secret *corev1.Secret
	if secretName != "" {
		var err error
		if secret, err = secrets.GetSecret(ctx, secretName); err != nil {
			return errors.Wrap(err, "loading host credentials")
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	p.started = true

	if adapter := preselectedAdapter(hosts, existing); adapter != nil {
		f.SelectedNetworkAdapter.SetInitialValue(adapter)
	}
	if secret != nil {
		f.AdminUsername.SetInitialValue(string(secret.Data["user"]))
		f.AdminPassword.SetInitialValue(string(secret.Data["password"]))
	}
	p.done = true
	return nil
}

func preselectedAdapter(hosts []inventory.Host, existing []*kube.Host) *inventory.HostNetworkAdapter {
	if len(hosts) == 0 {
		return nil
	}
	ips := make(map[string]struct{})
	var ip string
	for _, config := range existing {
		ip = ""
		if config != nil {
			ip = config.Spec.IPAddress
		}
		ips[ip] = struct{}{}
	}
	if len(ips) != 1 || ip == "" {
		return nil
	}
	for i := range hosts[0].NetworkAdapters {
		if hosts[0].NetworkAdapters[i].IPAddress == ip {
			adapter := hosts[0].NetworkAdapters[i]
			return &adapter
		}
	}
	return nil
}
