// Package relay defines the message channel between the sandboxed preview
// and the host.
//
// The sandbox speaks a closed two-message protocol:
//
//	{type: "codeError", error: <stringifiable>, source, line, col}
//	{type: "consoleLog", msg: <string>}
//
// Decoded envelopes become Messages in a Log. A Log belongs to exactly one
// document generation at a time, which is how messages from a discarded
// document are kept out of the list of its successor.
//
// Stringify is the host-side twin of the serializer embedded in the
// instrumentation script. Both are bounded by a SerializerConfig.
package relay
