// Package main provides a CLI tool for generating session tokens, challenge
// codes and password hashes for local Warden development. Seeding a hash
// directly into the users table is the usual way to create fixture accounts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"warden/internal/auth/token"
	"warden/pkg/secrets"
)

type output struct {
	Value string            `json:"value"`
	Type  string            `json:"type"`
	Usage map[string]string `json:"usage,omitempty"`
}

func main() {
	sessionCmd := flag.NewFlagSet("session", flag.ExitOnError)
	codeCmd := flag.NewFlagSet("code", flag.ExitOnError)
	hashCmd := flag.NewFlagSet("hash", flag.ExitOnError)

	sessionJSON := sessionCmd.Bool("json", false, "Output as JSON")
	codeJSON := codeCmd.Bool("json", false, "Output as JSON")
	hashPassword := hashCmd.String("password", "", "Password to hash (required)")
	hashJSON := hashCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	gen := token.Random{}
	switch os.Args[1] {
	case "session":
		_ = sessionCmd.Parse(os.Args[2:])
		emit(output{
			Value: gen.SessionToken(),
			Type:  "session_token",
			Usage: map[string]string{"header": "Authorization: Bearer <value>"},
		}, *sessionJSON)
	case "code":
		_ = codeCmd.Parse(os.Args[2:])
		emit(output{Value: gen.NumericChallenge(), Type: "numeric_challenge"}, *codeJSON)
	case "hash":
		_ = hashCmd.Parse(os.Args[2:])
		if *hashPassword == "" {
			fmt.Fprintln(os.Stderr, "Error: -password is required")
			os.Exit(1)
		}
		hash, err := secrets.Hash(*hashPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
			os.Exit(1)
		}
		emit(output{
			Value: hash,
			Type:  "bcrypt_hash",
			Usage: map[string]string{"column": "users.password_hash"},
		}, *hashJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate development values for Warden

Usage:
  tokengen <command> [flags]

Commands:
  session   Generate a random session token
  code      Generate a six digit challenge code
  hash      Hash a password with bcrypt

Examples:
  tokengen session
  tokengen hash -password "demo-password-1" -json

Use "tokengen <command> -h" for more information about a command.`)
}

func emit(out output, asJSON bool) {
	if !asJSON {
		fmt.Println(out.Value)
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
