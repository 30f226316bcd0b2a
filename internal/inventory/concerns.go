package inventory

// MostSevereConcern returns the first concern at the highest severity present
// on the VM, or nil if it has none. A VM whose concerns all carry an
// unrecognized severity yields a synthetic Warning named "Unknown".
func MostSevereConcern(vm VM) *Concern {
	if len(vm.Concerns) == 0 {
		return nil
	}
	for _, severity := range []Severity{SeverityCritical, SeverityWarning, SeverityAdvisory} {
		for i := range vm.Concerns {
			if vm.Concerns[i].Severity == severity {
				c := vm.Concerns[i]
				return &c
			}
		}
	}
	return &Concern{Severity: SeverityWarning, Name: "Unknown"}
}
