// token issues a bearer token for an account, signed with the API's
// JWT_SECRET. It is meant for local development and smoke tests.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"

	"nftcredit-backend/internal/adapter/middleware"
	"nftcredit-backend/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		account string
		ttl     time.Duration
		dir     string
	)
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	fs.StringVar(&account, "account", "", "0x-prefixed account the token authenticates")
	fs.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	fs.StringVar(&dir, "config-dir", ".", "directory holding the .env file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if !common.IsHexAddress(account) {
		return fmt.Errorf("invalid --account %q", account)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	tok, err := middleware.IssueToken([]byte(cfg.JWTSecret), common.HexToAddress(account), ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
