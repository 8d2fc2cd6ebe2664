package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shindakun/areagate/internal/auth"
	"github.com/shindakun/areagate/internal/config"
)

var (
	passwdApplication string
	passwdArea        string
)

var passwdCmd = &cobra.Command{
	Use:   "passwd USERNAME",
	Short: "Create or update a user in the area's credentials file",
	Long: `Stores a bcrypt hash for USERNAME in the htpasswd file of an area.
Application and area default to the ones in the configuration.
The password is prompted for on a terminal, otherwise read from the first line of stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runPasswd,
}

func init() {
	passwdCmd.Flags().StringVar(&passwdApplication, "application", "", "application owning the area")
	passwdCmd.Flags().StringVar(&passwdArea, "area", "", "area whose credentials are updated")
}

func runPasswd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	application := cfg.Auth.Application
	if passwdApplication != "" {
		application = passwdApplication
	}
	area := cfg.Auth.Area
	if passwdArea != "" {
		area = passwdArea
	}

	path, err := auth.CredentialsPath(cfg.Auth.CredentialsRoot, application, area)
	if err != nil {
		return err
	}

	password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if err := auth.NewHtpasswdVerifier(path).SetPassword(args[0], password); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "updated %s in %s\n", args[0], path)
	return nil
}

// readPassword prompts twice on a terminal, otherwise it reads one line from in
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}

		fmt.Fprint(prompt, "Repeat password: ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}

		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
		return string(first), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
