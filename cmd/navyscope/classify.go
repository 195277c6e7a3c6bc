package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"navyscope/config"
	"navyscope/dispatch"
	"navyscope/protocol"
)

var (
	classifyIncrement int32
	rulesJSON         bool
)

// classifyCmd reports what the dispatcher would do for each token, without
// touching hardware
var classifyCmd = &cobra.Command{
	Use:   "classify <input>...",
	Short: "Show which rules match the given input",
	Long: `Frames each argument the way the bridge frames serial input and prints
the focus and LX200 rule that would fire for every token.

Example:
  navyscope classify ':GR#' 'F+' 'xyz:GD#abc'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return classify(cmd.OutOrStdout(), args, classifyIncrement)
	},
}

// rulesCmd prints the rule table
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the dispatch rule table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printRules(cmd.OutOrStdout(), dispatch.DefaultRules(), rulesJSON)
	},
}

func init() {
	classifyCmd.Flags().Int32Var(&classifyIncrement, "increment", config.DefaultIncrement, "Focus increment in steps")
	rulesCmd.Flags().BoolVar(&rulesJSON, "json", false, "Print rules as JSON")
}

func classify(w io.Writer, inputs []string, increment int32) error {
	d := dispatch.New(nil, nil, increment)

	for _, input := range inputs {
		framer := protocol.NewFramer(protocol.DefaultMaxTokenLength)
		tokens := framer.Feed([]byte(input))
		if tail := framer.Flush(); tail != nil {
			tokens = append(tokens, tail)
		}

		for _, token := range tokens {
			m := d.Classify(token)
			if m.None() {
				fmt.Fprintf(w, "%q\tignored\n", token)
				continue
			}

			var actions []string
			if m.Focus != nil {
				delta := m.Focus.Direction * increment
				actions = append(actions, fmt.Sprintf("%s move %+d", m.Focus.Name, delta))
			}
			if m.LX200 != nil {
				actions = append(actions, fmt.Sprintf("%s reply %q", m.LX200.Name, m.LX200.Reply))
			}
			fmt.Fprintf(w, "%q\t%s\n", token, strings.Join(actions, ", "))
		}
	}
	return nil
}

func printRules(w io.Writer, rules []dispatch.Rule, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rules)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCHAIN\tMARKER\tACTION")
	for _, r := range rules {
		action := r.Action.String()
		switch r.Action {
		case dispatch.ActionMove:
			action = fmt.Sprintf("move %+d x increment", r.Direction)
		case dispatch.ActionReply:
			action = fmt.Sprintf("reply %q", r.Reply)
		}
		fmt.Fprintf(tw, "%s\t%s\t%q\t%s\n", r.Name, r.Chain, r.Marker, action)
	}
	return tw.Flush()
}
