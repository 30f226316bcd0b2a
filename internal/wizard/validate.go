package wizard

import (
	"strings"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/rflorenc/vm-migration-console/internal/kube"
)

// ErrInvalid marks input the wizard rejects.
var ErrInvalid = errors.New("invalid input")

// ValidatePlanName checks that name is a DNS-1123 label not used by another
// plan. The plan being edited may keep its own name.
func ValidatePlanName(name string, plans []kube.Plan, editing *kube.Plan) error {
	if msgs := validation.IsDNS1123Label(name); len(msgs) > 0 {
		return errors.Wrapf(ErrInvalid, "plan name %q: %s", name, strings.Join(msgs, "; "))
	}
	if editing != nil && editing.Name == name {
		return nil
	}
	for _, p := range plans {
		if p.Name == name {
			return errors.Wrapf(ErrInvalid, "a plan named %q already exists", name)
		}
	}
	return nil
}
