// Package notion talks to the Notion REST API through a core.TransportAdapter
// chain, and maps database pages into core.RecordReference values.
package notion
