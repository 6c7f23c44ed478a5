package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vango-dev/sharedstore/internal/errors"
)

func errorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "errors [code]",
		Short: "List error codes or explain one",
		Long: `List every error code sharedstore can report, or print the
detail and hint for a single code.

Examples:
  sharedstore errors
  sharedstore errors S004`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				for _, code := range errors.GetAllCodes() {
					tmpl, _ := errors.GetTemplate(code)
					fmt.Fprintf(out, "%s  %-8s %s\n", code, tmpl.Category, tmpl.Message)
				}
				return nil
			}

			code := strings.ToUpper(args[0])
			tmpl, ok := errors.GetTemplate(code)
			if !ok {
				return errors.Newf(errors.CategoryCLI, "unknown error code %q", args[0]).
					WithSuggestion("Run 'sharedstore errors' to list every code")
			}

			fmt.Fprintf(out, "%s: %s\n", code, tmpl.Message)
			info(out, "Category: %s", tmpl.Category)
			if tmpl.Detail != "" {
				info(out, "%s", tmpl.Detail)
			}
			if tmpl.Suggestion != "" {
				info(out, "Hint: %s", tmpl.Suggestion)
			}
			return nil
		},
	}
}
