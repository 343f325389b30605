package vfx

import "errors"

var (
	// ErrNotFound is returned by content lookups when the library has
	// no entry under the requested name, wrapped with that name.
	ErrNotFound = errors.New("vfx: content not found")

	// ErrUnknownChain is returned by Paint for a chain id that was
	// never added or has been removed.
	ErrUnknownChain = errors.New("vfx: unknown chain")

	// ErrCompileAborted is the node error recorded when the worker
	// pool dropped a shader compile before it ran, typically during
	// shutdown.
	ErrCompileAborted = errors.New("vfx: shader compilation aborted")

	// ErrUnknownNodeType is returned when a snapshot carries a node
	// property object with an unrecognized "type" tag.
	ErrUnknownNodeType = errors.New("vfx: unknown node type")
)
