package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/luminosity-leds/luminosity/internal/config"
	"github.com/luminosity-leds/luminosity/internal/crypto"
)

var (
	outFile   string
	force     bool
	printOnly bool
)

var rootCmd = &cobra.Command{
	Use:          "gensecret",
	Short:        "Generate the token signing secret",
	Long:         "Writes a random hex secret for auth.token_secret_file. Refuses to overwrite an existing file unless --force is given.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if printOnly {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), crypto.NewSecret())
			return err
		}
		if outFile == "" {
			outFile = filepath.Join(config.ProjectRoot(), "token.secret")
		}
		return writeSecret(cmd.OutOrStdout(), outFile, force)
	},
}

func writeSecret(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(crypto.NewSecret()+"\n"), 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	_, err := fmt.Fprintf(w, "Token secret written to %s\n", path)
	return err
}

func init() {
	rootCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <project root>/token.secret)")
	rootCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	rootCmd.Flags().BoolVar(&printOnly, "print", false, "print the secret instead of writing a file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
