package kube

import (
	"context"
)

func (c *Client) ListNetworkMaps(ctx context.Context) ([]NetworkMap, error) {
	return list[NetworkMap](ctx, c, NetworkMapGVR, c.namespace)
}

func (c *Client) ListStorageMaps(ctx context.Context) ([]StorageMap, error) {
	return list[StorageMap](ctx, c, StorageMapGVR, c.namespace)
}

func (c *Client) CreateNetworkMap(ctx context.Context, m *NetworkMap) (*NetworkMap, error) {
	created, err := create[NetworkMap](ctx, c, NetworkMapGVR, m.Name, m)
	c.metrics.PlanMutation("create_networkmap", err)
	return created, err
}

func (c *Client) CreateStorageMap(ctx context.Context, m *StorageMap) (*StorageMap, error) {
	created, err := create[StorageMap](ctx, c, StorageMapGVR, m.Name, m)
	c.metrics.PlanMutation("create_storagemap", err)
	return created, err
}

func (c *Client) DeleteNetworkMap(ctx context.Context, name string) error {
	err := c.delete(ctx, NetworkMapGVR, name)
	c.metrics.PlanMutation("delete_networkmap", err)
	return err
}

func (c *Client) DeleteStorageMap(ctx context.Context, name string) error {
	err := c.delete(ctx, StorageMapGVR, name)
	c.metrics.PlanMutation("delete_storagemap", err)
	return err
}
