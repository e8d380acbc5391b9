// Package events carries task lifecycle notifications from the executor to
// interested observers without the executor knowing who they are.
//
// The primary components are:
// - LifecycleEvent: a task reached a terminal state
// - EventHandler: interface for components that react to events
// - EventEmitter: interface for components that publish events
package events
