package cmd

import (
	"fmt"
	"strings"

	"github.com/crytic/exposed/cmd/exitcodes"
	"github.com/crytic/exposed/compilation/types"
	"github.com/crytic/exposed/exposure"
	"github.com/crytic/exposed/logging/colors"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// identifyCmd represents the command provider for identify
var identifyCmd = &cobra.Command{
	Use:   "identify <artifact.json>...",
	Short: "Reports whether compiled artifacts are exposed contracts",
	Long: `Reads compiled contract artifacts and reports, for each, whether its runtime bytecode carries the marker of a
generated exposed contract, along with the exposed functions of its ABI`,
	Args:          cobra.MinimumNArgs(1),
	RunE:          cmdRunIdentify,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	identifyCmd.Flags().String("marker", exposure.DefaultMarker, "marker tag embedded in generated contracts")
	identifyCmd.Flags().String("prefix", exposure.DefaultPrefix, "prefix of exposed functions")

	// Add the identify command and its associated flags to the root command
	rootCmd.AddCommand(identifyCmd)
}

// identification describes whether a compiled contract is an exposed contract.
type identification struct {
	// contract is the identified contract.
	contract *types.CompiledContract

	// exposed indicates whether the contract carries the marker.
	exposed bool

	// functions lists the signatures and selectors of the prefixed functions of exposed contracts, sorted.
	functions []string
}

// identifyContract checks a compiled contract for the marker and collects its prefixed functions.
func identifyContract(contract *types.CompiledContract, marker string, prefix string) identification {
	result := identification{
		contract:  contract,
		exposed:   exposure.IsExposedContract(contract, marker),
		functions: make([]string, 0),
	}
	if !result.exposed {
		return result
	}

	names := maps.Keys(contract.Abi.Methods)
	slices.Sort(names)
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		method := contract.Abi.Methods[name]
		result.functions = append(result.functions, fmt.Sprintf("%s %s", hexutil.Encode(method.ID), method.Sig))
	}
	return result
}

// cmdRunIdentify executes the CLI identify command for every provided artifact path.
func cmdRunIdentify(cmd *cobra.Command, args []string) error {
	marker, err := cmd.Flags().GetString("marker")
	if err != nil {
		return err
	}
	prefix, err := cmd.Flags().GetString("prefix")
	if err != nil {
		return err
	}

	for _, artifactPath := range args {
		contract, err := types.ReadCompiledContract(artifactPath)
		if err != nil {
			cmdLogger.Error("Failed to run the identify command", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
		}

		result := identifyContract(contract, marker, prefix)
		name := contract.ContractName
		if contract.SourceName != "" {
			name = contract.SourceName + ":" + name
		}
		if !result.exposed {
			cmdLogger.Info(colors.Bold, name, colors.Reset, " is ", colors.YellowBold, "not", colors.Reset, " an exposed contract")
			continue
		}
		cmdLogger.Info(colors.Bold, name, colors.Reset, " is an ", colors.GreenBold, "exposed", colors.Reset, " contract with ", len(result.functions), " exposed function(s)")
		for _, function := range result.functions {
			cmdLogger.Info("  ", function)
		}
	}
	return nil
}
