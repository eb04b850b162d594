// Package transport is the HTTP layer jarflow uses to talk to Maven
// repositories.
//
// [Client] offers the four primitives the resolver and the downloader need:
//
//   - [Client.Fetch]: GET a small document (descriptor) into memory; only
//     200 counts as success
//   - [Client.Head]: probe size and byte-range support of an artifact
//   - [Client.GetRange]: ranged GET that must answer 206 Partial Content
//   - [Client.Get]: plain streaming GET for sequential downloads
//
// The client does not retry. Timeouts and cancellation come from the
// caller's context; [Options.Timeout] bounds only metadata fetches and
// response headers so that long artifact bodies are never cut off by a
// fixed client timeout.
//
// Every request reports to [observability.HTTP] hooks.
package transport
