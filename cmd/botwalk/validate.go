package main

import (
	"fmt"
	"os"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/botwalk/botwalk"
	"github.com/botwalk/botwalk/pkg/flowfile"
)

var validateCmd = &cobra.Command{
	Use:   "validate <flow file>",
	Short: "Check a flow file for structural problems",
	Long:  `Loads a flow file and reports broken references, missing branches, and unreachable steps. Errors block publishing; warnings do not.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args[0]); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	flow, err := flowfile.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load flow: %w", err)
	}

	result := botwalk.Validate(flow)
	p := termenv.ColorProfile()

	for _, issue := range result.Errors {
		fmt.Println(termenv.String("error   " + issue.String()).Foreground(p.Color("#f87171")))
	}
	for _, issue := range result.Warnings {
		fmt.Println(termenv.String("warning " + issue.String()).Foreground(p.Color("#fbbf24")))
	}

	if !result.Valid {
		return fmt.Errorf("flow %q is invalid: %d error(s)", flow.ID, len(result.Errors))
	}
	fmt.Println(termenv.String("Flow is valid.").Foreground(p.Color("#34d399")))
	return nil
}
