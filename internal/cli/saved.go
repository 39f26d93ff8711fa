package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/locate918/eventengine/internal/event"
)

func newSavedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage the saved-URL list",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootConfig, newShared())
			if err != nil {
				return err
			}
			urls := a.store.LoadSavedURLs()
			out := cmd.OutOrStdout()
			if len(urls) == 0 {
				fmt.Fprintln(out, "No saved URLs.")
				return nil
			}
			for _, u := range urls {
				render := ""
				if u.Render {
					render = " [render]"
				}
				fmt.Fprintf(out, "%-30s %s%s\n", u.Name, u.URL, render)
			}
			return nil
		},
	})

	var name string
	var render bool
	add := &cobra.Command{
		Use:   "add URL",
		Short: "Add or update a saved URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootConfig, newShared())
			if err != nil {
				return err
			}
			if name == "" {
				name = event.HostOf(args[0])
			}
			urls, err := a.store.AddSavedURL(args[0], name, render)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d URLs)\n", args[0], len(urls))
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "Display name (default: the page host)")
	add.Flags().BoolVar(&render, "render", false, "Render this page in a headless browser")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove URL",
		Short: "Remove a saved URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootConfig, newShared())
			if err != nil {
				return err
			}
			urls, err := a.store.RemoveSavedURL(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%d URLs left)\n", args[0], len(urls))
			return nil
		},
	})
	return cmd
}

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Manage saved extraction results",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved result files, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootConfig, newShared())
			if err != nil {
				return err
			}
			files, err := a.store.ListResults()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintf(out, "No saved results in %s\n", a.store.Dir())
				return nil
			}
			for _, f := range files {
				fmt.Fprintf(out, "%-50s %8d  %s\n", f.Name, f.Size, f.ModTime.Format("2006-01-02 15:04"))
			}
			return nil
		},
	})

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete saved results, keeping the saved-URL list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootConfig, newShared())
			if err != nil {
				return err
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Delete all results in %s?", a.store.Dir())) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			n, err := a.store.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d files\n", n)
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.AddCommand(clearCmd)
	return cmd
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
