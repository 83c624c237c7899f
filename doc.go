// # Go Client Package for Relay-Based Collaborative Text Editing
//
// This repository provides a Go package for joining a shared document session owned by a relay server. It handles the WebSocket session lifecycle, gates which local edits may leave the client, applies remote edits without echoing them back, and derives save/ready affordances from the participant roster. It is designed to be imported into your own Go projects; a headless in-memory editing surface and a terminal agent are included.
package collab
