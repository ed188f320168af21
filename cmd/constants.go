package cmd

// DefaultCompilationPlatform describes the default compilation platform to use if one is not provided
const DefaultCompilationPlatform = "hardhat"

// TargetFlagDescription describes the --target flag shared by the commands which compile a project.
const TargetFlagDescription = "target that needs to be compiled, a project directory or, for solc, a single file"

