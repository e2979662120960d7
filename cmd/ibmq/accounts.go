package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/lanl/ibmq"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage stored IBM Q credentials",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runAccountsList,
}

var accountsStoreCmd = &cobra.Command{
	Use:   "store <token>",
	Short: "Store an account",
	Long: `Store an account's API token in the accounts file.  An existing
account of the same name is replaced only with --overwrite.`,
	Args: cobra.ExactArgs(1),
	RunE: runAccountsStore,
}

var accountsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsDelete,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsStoreCmd)
	accountsCmd.AddCommand(accountsDeleteCmd)

	accountsStoreCmd.Flags().String("name", "default", "local name of the account")
	accountsStoreCmd.Flags().String("url", "", "API endpoint (default "+ibmq.DefaultURL+")")
	accountsStoreCmd.Flags().String("hub", "", "provider hub")
	accountsStoreCmd.Flags().String("group", "", "provider group")
	accountsStoreCmd.Flags().String("project", "", "provider project")
	accountsStoreCmd.Flags().String("proxy", "", "proxy URL")
	accountsStoreCmd.Flags().Bool("overwrite", false, "replace an existing account of the same name")
}

// maskToken hides all but the last four characters of a token.
func maskToken(tok string) string {
	if len(tok) <= 4 {
		return "****"
	}
	return "****" + tok[len(tok)-4:]
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	accounts, err := accountStore(cfg).StoredAccounts()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(accounts) == 0 {
		fmt.Fprintln(out, "No accounts stored in", cfg.Accounts.File)
		return nil
	}
	bold := lipgloss.NewRenderer(out).NewStyle().Bold(true)
	for _, a := range accounts {
		url := a.URL
		if url == "" {
			url = ibmq.DefaultURL
		}
		fmt.Fprintf(out, "%s  %s  %s\n", bold.Render(a.Name), url, maskToken(a.Token))
	}
	return nil
}

func runAccountsStore(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	acct := ibmq.Account{Token: args[0]}
	acct.Name, _ = flags.GetString("name")
	acct.URL, _ = flags.GetString("url")
	acct.Hub, _ = flags.GetString("hub")
	acct.Group, _ = flags.GetString("group")
	acct.Project, _ = flags.GetString("project")
	acct.Proxy, _ = flags.GetString("proxy")
	overwrite, _ := flags.GetBool("overwrite")
	if err := accountStore(cfg).StoreAccount(acct, overwrite); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored account %q in %s\n", acct.Name, cfg.Accounts.File)
	return nil
}

func runAccountsDelete(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := accountStore(cfg).DeleteAccount(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %q\n", args[0])
	return nil
}
