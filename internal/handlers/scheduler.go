package handlers

import "github.com/charlesng35/socialink/internal/tasks"

// Scheduler accepts fire-and-forget work. It is satisfied by *tasks.Runner.
type Scheduler interface {
	Submit(name string, task tasks.Task) bool
}
