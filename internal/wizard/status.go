package wizard

import (
	"fmt"

	"github.com/rflorenc/vm-migration-console/internal/kube"
)

const conditionReady = "Ready"

// PlanStatus is the summary shown next to a plan.
type PlanStatus struct {
	Name     string `json:"name"`
	Ready    bool   `json:"ready"`
	Label    string `json:"label"`
	VMsDone  int    `json:"vmsDone"`
	TotalVMs int    `json:"totalVMs"`
	Percent  int    `json:"percent"`
	Message  string `json:"message,omitempty"`
}

// ComputePlanStatus reports a plan as Ready when all of its conditions are
// Ready conditions (including when it has none) and as Running otherwise,
// with progress taken from migration. migration may be nil.
func ComputePlanStatus(plan *kube.Plan, migration *kube.Migration) PlanStatus {
	status := PlanStatus{Name: plan.Name, TotalVMs: len(plan.Spec.VMs)}
	status.Ready = true
	for _, c := range plan.Status.Conditions {
		if c.Type != conditionReady {
			status.Ready = false
			break
		}
	}
	if status.Ready {
		status.Label = "Ready"
		return status
	}

	status.Label = "Running"
	if migration != nil {
		status.VMsDone = migration.Status.NbVMsDone
	}
	if status.TotalVMs > 0 {
		status.Percent = status.VMsDone * 100 / status.TotalVMs
	}
	status.Message = fmt.Sprintf("%d of %d VMs migrated", status.VMsDone, status.TotalVMs)
	return status
}

// ComputePlanStatuses pairs every plan with its latest migration.
func ComputePlanStatuses(plans []kube.Plan, migrations []kube.Migration) []PlanStatus {
	statuses := make([]PlanStatus, 0, len(plans))
	for i := range plans {
		statuses = append(statuses, ComputePlanStatus(&plans[i], kube.LatestMigration(migrations, plans[i].Name)))
	}
	return statuses
}
