package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rflorenc/vm-migration-console/internal/config"
	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/kube"
	"github.com/rflorenc/vm-migration-console/internal/logging"
	"github.com/rflorenc/vm-migration-console/internal/metrics"
	"github.com/rflorenc/vm-migration-console/internal/vsphere"
)

// app is what every command needs: configuration, a logger, the inventory
// source and the cluster client.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	metrics   *metrics.Metrics
	inventory inventory.Source
	kube      *kube.Client
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		log:     logging.New(os.Stderr, cfg.LogLevel),
		metrics: metrics.New(),
	}

	switch cfg.Inventory.Backend {
	case config.BackendMock:
		err = a.mockBackend()
	case config.BackendVCenter:
		err = a.vcenterBackend(cmd.Context())
	default:
		err = a.restBackend()
	}
	if err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{
		"backend":   cfg.Inventory.Backend,
		"namespace": cfg.Namespace,
	}).Debug("backends ready")
	return a, nil
}

func (a *app) kubeClient() (*kube.Client, error) {
	rc, err := kube.RESTConfig(a.cfg.Kubeconfig)
	if err != nil {
		return nil, err
	}
	return kube.NewForConfig(rc, a.cfg.Namespace, a.metrics)
}

// mockBackend serves fixtures and keeps resources in a fake cluster.
func (a *app) mockBackend() error {
	fixtures, err := inventory.LoadFixtures(a.cfg.Mock.Fixtures)
	if err != nil {
		return err
	}
	client, err := kube.NewFake(a.cfg.Namespace, fixtures.Objects, a.metrics)
	if err != nil {
		return err
	}
	a.inventory = inventory.NewFixtureSource(fixtures)
	a.kube = client
	a.log.Warn("using mock inventory and an in-memory cluster; nothing is persisted")
	return nil
}

func (a *app) restBackend() error {
	client, err := a.kubeClient()
	if err != nil {
		return err
	}
	inv := a.cfg.Inventory
	cc := inventory.ClientConfig{
		URL:      inv.URL,
		Token:    inv.Token,
		Insecure: inv.Insecure,
		RetryMax: inv.RetryMax,
	}
	if inv.CACert != "" {
		data, err := os.ReadFile(inv.CACert)
		if err != nil {
			return fmt.Errorf("reading CA certificate: %w", err)
		}
		cc.CACert = string(data)
	}
	a.inventory = inventory.NewClient(cc, a.log, a.metrics)
	a.kube = client
	return nil
}

// vcenterBackend reads the VMware side from vCenter and the OpenShift side
// from the cluster.
func (a *app) vcenterBackend(ctx context.Context) error {
	client, err := a.kubeClient()
	if err != nil {
		return err
	}
	vc := a.cfg.VCenter
	provider := inventory.Provider{Name: vc.Provider, Namespace: a.cfg.Namespace, UID: vc.ProviderUID}
	if provider.UID == "" {
		provider.UID, err = providerUID(ctx, client, vc.Provider)
		if err != nil {
			return err
		}
	}
	source, err := vsphere.New(vsphere.Config{
		URL:      vc.URL,
		Username: vc.Username,
		Password: vc.Password,
		Insecure: vc.Insecure,
		Provider: provider,
	}, a.log)
	if err != nil {
		return err
	}
	a.inventory = inventory.NewRouter(map[inventory.ProviderType]inventory.Source{
		inventory.ProviderVSphere:   source,
		inventory.ProviderOpenShift: kube.NewTargetInventory(client),
	})
	a.kube = client
	return nil
}

func providerUID(ctx context.Context, client *kube.Client, name string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	providers, err := client.ListProviders(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range providers {
		if p.Name == name {
			return string(p.UID), nil
		}
	}
	return "", fmt.Errorf("provider %s not found in namespace %s", name, client.Namespace())
}
