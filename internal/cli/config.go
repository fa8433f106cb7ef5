package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dl-alexandre/sheetmirror/internal/config"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Commands for managing sheetmirror configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective configuration (file, .env and environment merged) with secrets redacted",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	Long:  "Save the effective configuration, defaults included, so it can be edited by hand",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configSetPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Store the FTP password in the system keyring",
	Long: `Store the FTP password in the system keyring, falling back to an encrypted
file in the config directory when no keyring is available. The password is read
from --password or, when that is absent, from the first line of stdin.

Set ftpPasswordKeyring to true so the daemon reads it from there.`,
	Args: cobra.NoArgs,
	RunE: runConfigSetPassword,
}

var setPasswordValue string

func init() {
	configSetPasswordCmd.Flags().StringVar(&setPasswordValue, "password", "", "FTP password (read from stdin when empty)")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetPasswordCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg, err := currentConfig()
	if err != nil {
		return out.Fail("config.show", err)
	}
	return out.WriteSuccess("config.show", cfg.Redacted())
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg, err := currentConfig()
	if err != nil {
		return out.Fail("config.init", err)
	}

	path := flags.Config
	if path == "" {
		path, err = config.GetConfigPath()
		if err != nil {
			return out.Fail("config.init", err)
		}
	}
	saved := *cfg
	if saved.FTPPasswordKeyring {
		saved.FTPPassword = ""
	}
	if err := saved.Save(path); err != nil {
		return out.Fail("config.init", utils.WrapAppError(utils.ErrCodeUnknown, err, "failed to save configuration"))
	}

	out.Log("Configuration written to %s", path)
	return out.WriteSuccess("config.init", map[string]string{"path": path})
}

func runConfigSetPassword(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg, err := currentConfig()
	if err != nil {
		return out.Fail("config.set-password", err)
	}
	if cfg.FTPHost == "" || cfg.FTPUser == "" {
		return out.Fail("config.set-password", utils.NewCLIError(utils.ErrCodeConfigurationMissing,
			"ftpHost and ftpUser must be configured before storing a password").Err())
	}

	password := setPasswordValue
	if password == "" {
		password, err = readSecretLine(cmd.InOrStdin())
		if err != nil {
			return out.Fail("config.set-password", err)
		}
	}

	store, err := openSecretStore()
	if err != nil {
		return out.Fail("config.set-password", err)
	}
	name := cfg.FTPSecretName()
	if err := store.Save(name, password); err != nil {
		return out.Fail("config.set-password", utils.WrapAppError(utils.ErrCodeUnknown, err, "failed to store password"))
	}

	out.Log("Stored FTP password for %s in %s", name, store.Name())
	return out.WriteSuccess("config.set-password", map[string]string{
		"secret": name,
		"store":  store.Name(),
	})
}

func readSecretLine(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && f == os.Stdin {
		fmt.Fprint(os.Stderr, "FTP password: ")
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", utils.WrapAppError(utils.ErrCodeInvalidArgument, err, "no password given")
		}
		return "", utils.NewCLIError(utils.ErrCodeInvalidArgument, "no password given").Err()
	}
	return line, nil
}
