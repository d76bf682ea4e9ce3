package tasks

import "time"

// Task is the record correlating a human-initiated provisioning request with
// the later firmware callback. ID doubles as the correlation token exposed
// to firmware. PackageRef is empty for observe-only tasks. Response holds
// the raw callback body once Completed is true.
type Task struct {
	ID         string
	PackageRef string
	CreatedAt  time.Time
	Completed  bool
	Response   []byte
}
