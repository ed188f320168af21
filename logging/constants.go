package logging

// These constants are used to identify the various services that may do some logging
const (
	// COMPILATION_SERVICE is the constant used to identify the compilation package
	COMPILATION_SERVICE = "compilation"
	// EXPOSURE_SERVICE is the constant used to identify the exposure package
	EXPOSURE_SERVICE = "exposure"
	// OUTPUT_SERVICE is the constant used to identify the package writing generated files
	OUTPUT_SERVICE = "output"
	// CLI_SERVICE is the constant used to identify the cmd package
	CLI_SERVICE = "cli"
)
