// Package types holds the FlatBuffers encoding of bridge state.
package types

//go:generate flatc --go -o .. ../../schema/bridge.fbs
