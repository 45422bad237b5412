package xproto

import "fmt"

// ValidateEndpoints enforces spec.md §8's boundary behaviors: ports must
// fall in 1..=65535, priorities (when given) must fall in 0..=100, and a
// list must be either fully prioritized or fully unprioritized.
func ValidateEndpoints(endpoints []Endpoint) error {
	haveExplicit := false
	haveImplicit := false

	for _, ep := range endpoints {
		if ep.Port < 1 {
			return fmt.Errorf("Port must be between 0 and 65536")
		}

		if ep.Priority != nil {
			haveExplicit = true
			if *ep.Priority > 100 {
				return fmt.Errorf("The priorities must be between 0 and 100")
			}
		} else {
			haveImplicit = true
		}
	}

	if haveExplicit && haveImplicit {
		return fmt.Errorf("You must either assign no priority to any of the routers or give a priority for every router")
	}

	return nil
}
