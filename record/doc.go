// Package record orchestrates one LTTng tracing session around a command or
// an interactive wait.
//
// A [Recorder] resolves what to enable from a merged [profile.EventSet],
// then drives the daemon through a single sequential pass: create (with one
// destroy-and-retry on the first failure), per-domain channel and event
// configuration, start, then either running the traced command or blocking
// on a [Token] until interrupted, and finally a best-effort stop and
// destroy that runs on every path once the session exists.
//
// Configuration follows the usual Config/Flags shape; [Config.NewRecorder]
// binds flag values to a [Recorder].
package record
