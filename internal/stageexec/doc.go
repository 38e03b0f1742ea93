// Package stageexec executes one unit of stage work against a provider and
// classifies the outcome.
//
// Every provider kind sits behind the Runner interface. A Result is either
// raw JSON output or a Failure whose Kind is one of nonzero-exit, timeout,
// unparseable-output, or io-error. The runner knows nothing about artifact
// schemas; callers validate the raw output themselves.
//
// Command providers run as their own process group with a scratch directory
// holding the request document. The scratch directory is removed on every
// exit path and the whole process group is killed when the timeout expires.
package stageexec
