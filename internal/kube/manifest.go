package kube

import (
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Manifest renders a plan as YAML without its controller-populated status.
func Manifest(plan *Plan) ([]byte, error) {
	out := *plan
	out.Status = PlanStatus{}
	out.ManagedFields = nil
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, errors.Wrapf(err, "rendering plan %s", plan.Name)
	}
	return data, nil
}
