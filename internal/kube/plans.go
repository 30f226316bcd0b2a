package kube

import (
	"context"
)

// ListPlans returns the plans in the client namespace sorted by name.
func (c *Client) ListPlans(ctx context.Context) ([]Plan, error) {
	return list[Plan](ctx, c, PlanGVR, c.namespace)
}

func (c *Client) GetPlan(ctx context.Context, name string) (*Plan, error) {
	return get[Plan](ctx, c, PlanGVR, name)
}

// CreatePlan creates a plan, failing with an AlreadyExists error if a plan
// of that name is already present.
func (c *Client) CreatePlan(ctx context.Context, plan *Plan) (*Plan, error) {
	created, err := create[Plan](ctx, c, PlanGVR, plan.Name, plan)
	c.metrics.PlanMutation("create_plan", err)
	return created, err
}

// PatchPlan replaces the spec of an existing plan with a JSON merge patch.
func (c *Client) PatchPlan(ctx context.Context, plan *Plan) (*Plan, error) {
	body := map[string]interface{}{"spec": plan.Spec}
	patched, err := patch[Plan](ctx, c, PlanGVR, plan.Name, body)
	c.metrics.PlanMutation("patch_plan", err)
	return patched, err
}

func (c *Client) DeletePlan(ctx context.Context, name string) error {
	err := c.delete(ctx, PlanGVR, name)
	c.metrics.PlanMutation("delete_plan", err)
	return err
}

func (c *Client) ListMigrations(ctx context.Context) ([]Migration, error) {
	return list[Migration](ctx, c, MigrationGVR, c.namespace)
}

// LatestMigration returns the most recently created migration of the named
// plan, or nil.
func LatestMigration(migrations []Migration, planName string) *Migration {
	var latest *Migration
	for i := range migrations {
		m := &migrations[i]
		if m.Spec.Plan.Name != planName {
			continue
		}
		if latest == nil || latest.CreationTimestamp.Before(&m.CreationTimestamp) {
			latest = m
		}
	}
	return latest
}
