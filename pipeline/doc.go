// Package pipeline turns record references into bound QR artifacts.
//
// Orchestrator runs the per-record steps: reserve an upload slot, encode the
// payload, transmit the bytes and bind the file to the record. Collector finds
// records with an empty artifact property and Batch drives them through the
// Orchestrator with bounded fan-out.
package pipeline
