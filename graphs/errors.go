package graphs

import "errors"

var (
	ErrDanglingReference = errors.New("dangling node reference")
	ErrDuplicateNode     = errors.New("duplicate node id")
	ErrNodeNotFound      = errors.New("node not found")
	ErrInvalidNodeID     = errors.New("invalid node id")
	ErrInvalidNodeType   = errors.New("invalid node type")
)
