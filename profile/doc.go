// Package profile loads and resolves LTTng event profiles.
//
// A profile is a YAML file bundling kernel event names, userspace (UST)
// event names, and shared libraries to preload into traced commands.
// Profiles can compose other profiles through an includes list; included
// kernel and UST events are merged in with first-occurrence deduplication.
//
//	desc: Scheduling and IRQ activity
//	kernel:
//	  - sched_switch
//	  - irq_handler_entry
//	includes:
//	  - memory
//
// A [Store] locates profiles on an ordered search path, loads them with
// include resolution, and merges any number of them into one [EventSet]
// via [Store.Resolve].
package profile
