package metrics

import "fmt"

type metricsError struct {
	name string
	kind string
}

func (e metricsError) Error() string {
	return fmt.Sprintf("metrics %v %v", e.name, e.kind)
}

func errMetricDoesNotExist(name string) error {
	return metricsError{name: name, kind: "is not registered"}
}

func errMetricAlreadyRegistered(name string) error {
	return metricsError{name: name, kind: "already registered"}
}
