package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List favorited group IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer application.Close()

			ids := application.Cache().All()
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no favorites")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add GROUP_ID",
		Short: "Favorite a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer application.Close()

			application.Cache().Add(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "favorited %s\n", args[0])
			return nil
		},
	}
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove GROUP_ID",
		Short: "Un-favorite a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer application.Close()

			application.Cache().Remove(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

// NewToggleCommand creates the toggle command.
func NewToggleCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle GROUP_ID",
		Short: "Flip a group's favorited status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer application.Close()

			if application.Cache().Toggle(args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "favorited %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			}
			return nil
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every favorite on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}

			application, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer application.Close()

			application.Cache().Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm clearing all favorites")
	return cmd
}
