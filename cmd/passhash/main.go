// Command passhash prints a bcrypt hash suitable for CHAT_PASSWORD_HASH.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/zhouzirui/twinchat/backend/internal/service/auth"
)

const defaultCost = 10

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:          "passhash [password]",
		Short:        "Generate the CHAT_PASSWORD_HASH value for a password",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
				return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
			}

			password := ""
			if len(args) == 1 {
				password = args[0]
			} else {
				var err error
				password, err = readPassword(in, errOut)
				if err != nil {
					return err
				}
			}

			hash, err := auth.HashPassword(password, cost)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "CHAT_PASSWORD_HASH=%s\n", hash)
			return nil
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.Flags().IntVar(&cost, "cost", defaultCost, "bcrypt cost factor")
	return cmd
}

// readPassword 在终端上关闭回显读取密码，否则按行读取标准输入。
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(data), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}
