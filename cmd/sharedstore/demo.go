package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vango-dev/sharedstore/internal/orderform"
)

func demoCmd(configPath *string) *cobra.Command {
	var clicks int

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Mount the example order form and click it",
		Long: `Build a store from sharedstore.json, mount the example order form,
click it, and print the final store state as JSON.

The form logs its state when mounted and logs every update it
receives with the old state, the changes and the new state.

Examples:
  sharedstore demo
  sharedstore demo --clicks=2
  sharedstore demo --config=./examples/sharedstore.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, *configPath, clicks)
		},
	}

	cmd.Flags().IntVarP(&clicks, "clicks", "n", 1, "Number of times to click the form")

	return cmd
}

func runDemo(cmd *cobra.Command, configPath string, clicks int) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, found, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if !found {
		warn(errOut, "No sharedstore.json found, using defaults")
	}

	logger, err := newLogger(cfg, errOut)
	if err != nil {
		return err
	}
	s, err := newStore(cmd.Context(), cfg, logger, errOut)
	if err != nil {
		return err
	}

	form := orderform.New(s, logger)
	form.Mount()
	defer form.Unmount()

	for i := 0; i < clicks; i++ {
		form.Click()
	}

	data, err := json.MarshalIndent(s.State(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	fmt.Fprintln(out, string(data))

	success(errOut, "Clicked %d time(s), form mirror clicked=%v", clicks, form.Clicked())
	return nil
}
