package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/propmatch-cli/internal/model"
)

var (
	aliasType    string
	aliasPrimary bool
	aliasOfID    int64
)

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Manage property aliases",
}

var aliasAddCmd = &cobra.Command{
	Use:   "add <property-id> <name>",
	Short: "Register an alias for a property",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		propertyID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid property id %q", args[0])
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return env.resolver.AddAlias(ctx, propertyID, args[1], model.AliasType(aliasType), aliasPrimary)
	},
}

var aliasRemoveCmd = &cobra.Command{
	Use:   "remove <property-id> <name>",
	Short: "Remove an alias from a property",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		propertyID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid property id %q", args[0])
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return env.resolver.RemoveAlias(ctx, propertyID, args[1])
	},
}

var aliasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List aliases, optionally scoped to one property",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var aliases []model.Alias
		if aliasOfID > 0 {
			aliases, err = env.resolver.ListForProperty(ctx, aliasOfID)
		} else {
			aliases, err = env.resolver.ListAll(ctx)
		}
		if err != nil {
			return err
		}

		formatAliases(os.Stdout, aliases)
		return nil
	},
}

var aliasSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search aliases by substring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		aliases, err := env.resolver.Search(ctx, args[0])
		if err != nil {
			return err
		}

		formatAliases(os.Stdout, aliases)
		return nil
	},
}

func formatAliases(out io.Writer, aliases []model.Alias) {
	if len(aliases) == 0 {
		fmt.Fprintln(out, "no aliases found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROPERTY\tCANONICAL\tALIAS\tTYPE\tPRIMARY")
	for _, a := range aliases {
		primary := ""
		if a.IsPrimary {
			primary = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", a.PropertyID, a.PropertyName, a.Name, a.Type, primary)
	}
	w.Flush()
}

func init() {
	aliasAddCmd.Flags().StringVar(&aliasType, "type", string(model.AliasCommonName), "alias type (abbreviation, common_name, legal_name)")
	aliasAddCmd.Flags().BoolVar(&aliasPrimary, "primary", false, "mark as the property's primary alias")
	aliasListCmd.Flags().Int64Var(&aliasOfID, "property-id", 0, "list aliases for one property")

	aliasCmd.AddCommand(aliasAddCmd, aliasRemoveCmd, aliasListCmd, aliasSearchCmd)
	rootCmd.AddCommand(aliasCmd)
}
