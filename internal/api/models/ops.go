package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus represents the overall system status.
type SystemStatus struct {
	Status       HealthStatus       `json:"status"`
	Time         Timestamp          `json:"time"`
	Subsystems   []SubsystemStatus  `json:"subsystems"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// SubsystemStatus represents the status of a subsystem.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// DependencyStatus represents the status of an outbound notifier client.
type DependencyStatus struct {
	Name          string       `json:"name"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuit_state"`
	LastSuccessAt *Timestamp   `json:"last_success_at,omitempty"`
	LastFailureAt *Timestamp   `json:"last_failure_at,omitempty"`
	Message       *string      `json:"message,omitempty"`
}
