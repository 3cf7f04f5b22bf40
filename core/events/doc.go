// Package events defines the typed session event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - conversation.*
//   - stream.*
//   - session.*
//
// Semantics used across the package:
//
//   - Updated: mutable point-in-time snapshot that can change over time.
//   - Finalized: terminal immutable value for the current turn.
//   - Ready: a remote video stream has produced at least one decodable
//     frame and may be surfaced to the UI.
//
// conversation events
//
//   - TranscriptUpdated (conversation.transcript_updated): mutable snapshot
//     of the in-progress voice transcript, useful for live captioning.
//   - TurnUpdated (conversation.turn_updated): a streaming turn gained
//     content; may repeat for the same turn ID.
//   - TurnFinalized (conversation.turn_finalized): terminal emission for a
//     turn ID; emitted at most once per ID.
//   - StatusChanged (conversation.status_changed): the turn-taking status
//     moved to a new value.
//
// stream events
//
//   - StreamPlaying (stream.playing): playback started and track counts were
//     observed.
//   - StreamFailed (stream.failed): a playback attempt failed.
//   - StreamReady (stream.ready): first decodable frame observed.
//   - StreamNotReady (stream.not_ready): the agent video stream is no longer
//     (or not yet) renderable.
//   - StreamRemoved (stream.removed): the engine removed the stream.
//
// session events
//
//   - SessionJoined (session.joined): the transport connection is
//     established and local publishing started.
//   - SessionLeft (session.left): the session was torn down.
package events
