package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// stdinIsTerminal reports whether secrets can be prompted for
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readSecret reads a line from the terminal without echo
var readSecret = func(out io.Writer, label string) (string, error) {
	fmt.Fprintf(out, "%s: ", label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return string(b), nil
}

// readLine reads a visible line from stdin
var readLine = func(out io.Writer, label string) (string, error) {
	fmt.Fprintf(out, "%s: ", label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// credentials fills email and password from flags, environment and prompts
func credentials(out io.Writer, email, password string) (string, string, error) {
	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("PMCTL_EMAIL")
	}
	if password == "" {
		password = os.Getenv("PMCTL_PASSWORD")
	}

	if email == "" {
		if !stdinIsTerminal() {
			return "", "", fmt.Errorf("email is required (use --email flag or PMCTL_EMAIL env var)")
		}
		var err error
		if email, err = readLine(out, "Email"); err != nil {
			return "", "", err
		}
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		if !stdinIsTerminal() {
			return "", "", fmt.Errorf("password is required in non-interactive mode (use --password flag or PMCTL_PASSWORD env var)")
		}
		var err error
		if password, err = readSecret(out, "Password"); err != nil {
			return "", "", err
		}
	}

	return email, password, nil
}
