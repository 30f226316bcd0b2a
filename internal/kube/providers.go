package kube

import (
	"context"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func (c *Client) ListProviders(ctx context.Context) ([]Provider, error) {
	return list[Provider](ctx, c, ProviderGVR, c.namespace)
}

func (c *Client) ListHosts(ctx context.Context) ([]Host, error) {
	return list[Host](ctx, c, HostGVR, c.namespace)
}

// ApplyHost creates the host, or merge-patches its spec if it exists.
func (c *Client) ApplyHost(ctx context.Context, host *Host) (*Host, error) {
	err := c.checkIfResourceExists(ctx, HostGVR, host.Name)
	if err == nil {
		created, err := create[Host](ctx, c, HostGVR, host.Name, host)
		c.metrics.PlanMutation("create_host", err)
		return created, err
	}
	if !apierrors.IsAlreadyExists(err) {
		return nil, err
	}
	patched, err := patch[Host](ctx, c, HostGVR, host.Name, map[string]interface{}{"spec": host.Spec})
	c.metrics.PlanMutation("patch_host", err)
	return patched, err
}

// GetSecret fetches a secret from the client namespace. Data values are
// already base64-decoded by the clientset.
func (c *Client) GetSecret(ctx context.Context, name string) (*corev1.Secret, error) {
	secret, err := c.core.CoreV1().Secrets(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "getting secret %s", name)
	}
	return secret, nil
}

// ApplySecret creates the secret or replaces the data of an existing one.
func (c *Client) ApplySecret(ctx context.Context, secret *corev1.Secret) (*corev1.Secret, error) {
	secrets := c.core.CoreV1().Secrets(c.namespace)
	existing, err := secrets.Get(ctx, secret.Name, metav1.GetOptions{})
	if isNotFound(err) {
		secret.Namespace = c.namespace
		created, err := secrets.Create(ctx, secret, metav1.CreateOptions{})
		c.metrics.PlanMutation("create_secret", err)
		return created, errors.Wrapf(err, "creating secret %s", secret.Name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting secret %s", secret.Name)
	}
	existing.Data = secret.Data
	if existing.Labels == nil {
		existing.Labels = map[string]string{}
	}
	for k, v := range secret.Labels {
		existing.Labels[k] = v
	}
	updated, err := secrets.Update(ctx, existing, metav1.UpdateOptions{})
	c.metrics.PlanMutation("update_secret", err)
	return updated, errors.Wrapf(err, "updating secret %s", secret.Name)
}
