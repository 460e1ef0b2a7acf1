// Package events defines the typed event vocabulary of a remote streaming
// avatar session and a synchronous bus to dispatch it.
//
// Event kinds are grouped by namespace:
//
//   - stream.*
//   - avatar_speech.*
//   - user_input.*
//
// stream events
//
//   - StreamReady (stream.ready): media room is available; carries room URL
//     and access token.
//   - StreamDisconnected (stream.disconnected): remote side ended the session.
//
// avatar_speech events
//
//   - AvatarStartTalking (avatar_speech.started): avatar speech began.
//   - AvatarStopTalking (avatar_speech.stopped): avatar speech ended.
//   - AvatarFragment (avatar_speech.fragment): append-only partial text of the
//     current utterance, in arrival order.
//   - AvatarEndOfMessage (avatar_speech.end_of_message): utterance text is
//     complete.
//
// user_input events
//
//   - UserStart (user_input.start): user voice activity began.
//   - UserStop (user_input.stop): user voice activity ended.
//   - UserTranscript (user_input.transcript): transcribed user voice turn.
package events
