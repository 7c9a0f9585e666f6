package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/YeJunlin777/yachts-system/internal/bus"
	"github.com/YeJunlin777/yachts-system/internal/kv"
	"github.com/YeJunlin777/yachts-system/internal/store"
	"github.com/YeJunlin777/yachts-system/internal/validate"
	"github.com/YeJunlin777/yachts-system/pkg/config"
)

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "user":
		err = commandUser(args)
	case "blobs":
		err = commandBlobs(args)
	case "version", "--version", "-v":
		fmt.Printf("yachtsctl %s\n", buildVersion)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandUser(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: yachtsctl user <add|list|reset-password> [flags]")
	}
	switch args[0] {
	case "add":
		return commandUserAdd(args[1:])
	case "list":
		return commandUserList(args[1:])
	case "reset-password":
		return commandUserResetPassword(args[1:])
	default:
		return fmt.Errorf("unknown user subcommand: %s", args[0])
	}
}

func commandUserAdd(args []string) error {
	fs := flag.NewFlagSet("user add", flag.ExitOnError)
	account := fs.String("account", "", "Login account")
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address")
	role := fs.String("role", "admin", "Role")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	dataDir := fs.String("data-dir", "", "Blob directory (default from KV_DATA_DIR)")
	fs.Parse(args)

	if strings.TrimSpace(*account) == "" {
		return errors.New("--account is required")
	}
	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := resolvePassword(*password)
	if err != nil {
		return err
	}
	if err := checkNewUser(*account, *email, secret); err != nil {
		return err
	}

	users, cleanup, err := openUserStore(*dataDir)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	user, err := users.Create(ctx, store.CreateUserInput{
		Account:     *account,
		DisplayName: *name,
		Email:       *email,
		Role:        *role,
		Password:    secret,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created user %s (%s)\n", user.Account, user.ID)
	return nil
}

func commandUserList(args []string) error {
	fs := flag.NewFlagSet("user list", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "Blob directory (default from KV_DATA_DIR)")
	fs.Parse(args)

	users, cleanup, err := openUserStore(*dataDir)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, u := range users.List() {
		fmt.Printf("%s\t%s\t%s\t%s\n", u.ID, u.Account, u.Email, u.Role)
	}
	return nil
}

func commandUserResetPassword(args []string) error {
	fs := flag.NewFlagSet("user reset-password", flag.ExitOnError)
	account := fs.String("account", "", "Login account")
	password := fs.String("password", "", "New password (supply to avoid prompt)")
	dataDir := fs.String("data-dir", "", "Blob directory (default from KV_DATA_DIR)")
	fs.Parse(args)

	if strings.TrimSpace(*account) == "" {
		return errors.New("--account is required")
	}
	secret, err := resolvePassword(*password)
	if err != nil {
		return err
	}
	if err := validate.Password(secret); err != nil {
		return err
	}

	users, cleanup, err := openUserStore(*dataDir)
	if err != nil {
		return err
	}
	defer cleanup()

	user, err := users.GetByAccount(*account)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := users.Update(ctx, user.ID, store.UpdateUserInput{Password: secret}); err != nil {
		return err
	}
	fmt.Printf("password reset for %s\n", user.Account)
	return nil
}

// commandBlobs lists the keys held in the file-backed blob store together
// with their stored size, without decoding the payloads.
func commandBlobs(args []string) error {
	fs := flag.NewFlagSet("blobs", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "Blob directory (default from KV_DATA_DIR)")
	fs.Parse(args)

	dir := strings.TrimSpace(*dataDir)
	if dir == "" {
		dir = config.GetString("KV_DATA_DIR", "./data")
	}
	fileStore, err := kv.NewFileStore(dir)
	if err != nil {
		return err
	}
	defer fileStore.Close()

	keys, err := fileStore.Keys()
	if err != nil {
		return err
	}
	sort.Strings(keys)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, key := range keys {
		data, err := fileStore.Get(ctx, key)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%d bytes\n", key, len(data))
	}
	return nil
}

// checkNewUser applies the same field rules the API enforces so accounts
// bootstrapped from the CLI pass login validation later.
func checkNewUser(account, email, password string) error {
	if err := validate.Account(account); err != nil {
		return err
	}
	if err := validate.Email(email); err != nil {
		return err
	}
	return validate.Password(password)
}

func resolvePassword(fromFlag string) (string, error) {
	secret := strings.TrimSpace(fromFlag)
	if secret != "" {
		return secret, nil
	}
	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	secret = strings.TrimSpace(string(raw))
	if secret == "" {
		return "", errors.New("password must not be empty")
	}
	return secret, nil
}

// openUserStore opens the file-backed blob store directly; the tool is
// meant for local bootstrap while the API is stopped.
func openUserStore(dataDir string) (*store.UserStore, func(), error) {
	if strings.TrimSpace(dataDir) == "" {
		dataDir = config.GetString("KV_DATA_DIR", "./data")
	}
	fileStore, err := kv.NewFileStore(dataDir)
	if err != nil {
		return nil, nil, err
	}
	var blobStore kv.Store = fileStore
	if key := config.GetString("KV_ENCRYPTION_KEY", ""); key != "" {
		blobStore = kv.NewEncryptedStore(blobStore, key)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	users, err := store.NewUserStore(ctx, blobStore, bus.New(), logger)
	if err != nil {
		_ = fileStore.Close()
		return nil, nil, err
	}
	return users, func() { _ = fileStore.Close() }, nil
}

func printUsage() {
	fmt.Println(`yachtsctl - local administration for the yacht dashboard

Usage:
  yachtsctl user add --account <name> --email <addr> [--name n] [--role r] [--password p]
  yachtsctl user list
  yachtsctl user reset-password --account <name> [--password p]
  yachtsctl blobs
  yachtsctl version

Flags common to user commands:
  --data-dir   Blob directory (defaults to KV_DATA_DIR or ./data)`)
}
