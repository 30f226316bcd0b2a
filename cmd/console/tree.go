package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rflorenc/vm-migration-console/internal/inventory"
)

func newTreeCmd() *cobra.Command {
	var treeType, search string
	cmd := &cobra.Command{
		Use:   "tree PROVIDER",
		Short: "Print the inventory tree of a VMware provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			providers, err := a.inventory.Providers(ctx)
			if err != nil {
				return err
			}
			p := providers.Find(args[0], a.cfg.Namespace)
			if p == nil || p.Type != inventory.ProviderVSphere {
				return fmt.Errorf("no vsphere provider %s in namespace %s", args[0], a.cfg.Namespace)
			}
			tree, err := a.inventory.Tree(ctx, p, inventory.ParseTreeType(treeType))
			if err != nil {
				return err
			}
			none := func(*inventory.Tree) bool { return false }
			printTree(cmd.OutOrStdout(), inventory.FilterAndConvertTree(tree, search, none, false), 0)
			return nil
		},
	}
	cmd.Flags().StringVar(&treeType, "type", "host", "Tree to print: host or vm")
	cmd.Flags().StringVar(&search, "search", "", "Only show nodes whose name contains this text")
	return cmd
}

func printTree(w io.Writer, items []inventory.TreeViewItem, depth int) {
	for _, item := range items {
		label := item.Name
		if item.Kind != "" {
			label = fmt.Sprintf("%s (%s)", item.Name, item.Kind)
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), label)
		printTree(w, item.Children, depth+1)
	}
}
