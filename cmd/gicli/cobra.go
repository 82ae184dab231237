package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tigerroll/gicli/pkg/gicli/config"
	"github.com/tigerroll/gicli/pkg/gicli/crypto"
	"github.com/tigerroll/gicli/pkg/gicli/genconfig"
)

// newRootCmd builds the cobra command tree for the gicli subcommands
// that spec §6 groups apart from the flag-parsed primary run mode:
// encrypt, decrypt, generate-config and list.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gicli",
		Short:         "gicli subcommands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newEncryptCmd(), newDecryptCmd(), newGenerateConfigCmd(), newListCmd())
	return root
}

func readArgOrStdin(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return scanner.Text(), nil
}

func masterKey() string {
	key, _ := config.EncryptionKey()
	return key
}

func newEncryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt [text]",
		Short: "encrypt a literal into the ENC: secret-at-rest form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := readArgOrStdin(args)
			if err != nil {
				return err
			}
			out, err := crypto.Encrypt(masterKey(), plaintext)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newDecryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt [ciphertext]",
		Short: "decrypt an ENC: value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ciphertext, err := readArgOrStdin(args)
			if err != nil {
				return err
			}
			out, err := crypto.Decrypt(masterKey(), ciphertext)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newGenerateConfigCmd() *cobra.Command {
	var swaggerPath, outputPath string
	cmd := &cobra.Command{
		Use:   "generate-config",
		Short: "generate a skeleton group configuration from a Swagger/OpenAPI document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return genconfig.Generate(swaggerPath, outputPath)
		},
	}
	cmd.Flags().StringVar(&swaggerPath, "swagger", "", "path to the Swagger/OpenAPI document")
	cmd.Flags().StringVar(&outputPath, "output", "", "path to write the generated configuration")
	cmd.MarkFlagRequired("swagger")
	cmd.MarkFlagRequired("output")
	return cmd
}

func newListCmd() *cobra.Command {
	var dir, file string
	cmd := &cobra.Command{
		Use:   "list {names|ids} [origin]",
		Short: "list configured job descriptions or ids, optionally filtered to one origin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := strings.ToLower(args[0])
			if mode != "names" && mode != "ids" {
				return fmt.Errorf("list: unknown mode %q, want names or ids", mode)
			}
			g, err := loadGroup(dir, file)
			if err != nil {
				return err
			}
			origins := g.Origins
			if len(args) == 2 {
				origin, ok := g.OriginByName(args[1])
				if !ok {
					return fmt.Errorf("list: origin %q not found", args[1])
				}
				origins = []config.Origin{*origin}
			}
			for _, origin := range origins {
				for _, job := range origin.Jobs {
					if mode == "ids" {
						fmt.Fprintln(cmd.OutOrStdout(), job.ID)
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), job.Description)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "docs/", "configuration root directory")
	cmd.Flags().StringVarP(&file, "file", "f", "", "single configuration file")
	return cmd
}
