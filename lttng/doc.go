// Package lttng drives the LTTng tracing daemon through its command-line
// protocol.
//
// [Client] exposes one method per daemon subcommand (create, enable-channel,
// enable-event, add-context, start, stop, destroy, list). Commands run
// through a [Runner], so tests can substitute a fake and assert on the
// issued argument vectors. With [Client.DryRun] set, every command is
// printed to [Client.Out] instead of being executed.
package lttng
