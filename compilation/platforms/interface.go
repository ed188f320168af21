package platforms

import "github.com/crytic/exposed/compilation/types"

// PlatformConfig describes the interface all compilation platform configs must implement.
type PlatformConfig interface {
	// Compile produces the ASTs of the target. It returns one compilation per independent compiler run, since AST
	// node ids are only unique within a single run, along with any command output.
	Compile() ([]types.Compilation, string, error)
	Platform() string
	GetTarget() string
	SetTarget(string)
}
