// Package chats provides a provider-agnostic data model for chat interactions.
//
// It is organized into sub-packages:
//   - [github.com/loqui-dev/loqui/pkg/chats/role] — conversation roles (system, user, assistant, tool)
//   - [github.com/loqui-dev/loqui/pkg/chats/content] — content parts (text, tool call, tool result)
//   - [github.com/loqui-dev/loqui/pkg/chats/message] — messages composed of a role, sender, and content parts
//   - [github.com/loqui-dev/loqui/pkg/chats/chat] — mutable conversation container with tool-result linkage
//
// No provider or API code is included — chats is a foundation layer
// that adapters can build on.
package chats
