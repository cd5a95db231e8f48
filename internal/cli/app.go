// Package cli is an interactive operator console for the auth core. It
// drives the AuthService in-process against the configured stores.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Authenticator is the part of services.AuthService the console uses.
type Authenticator interface {
	Register(ctx context.Context, username, password, fullName string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	IsAuthorized(ctx context.Context, username, token string) bool
	RecentActivity(ctx context.Context, username string, maxEntries int) ([]time.Time, error)
	AuthorizedActivity(ctx context.Context, username, token string) ([]time.Time, error)
}

type App struct {
	auth     Authenticator
	in       *bufio.Reader
	out      io.Writer
	userName string
	token    string
}

func NewApp(auth Authenticator, in io.Reader, out io.Writer) *App {
	return &App{auth: auth, in: bufio.NewReader(in), out: out}
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) prompt() string {
	if a.userName != "" {
		return fmt.Sprintf("gauth (%s)> ", a.userName)
	}
	return "gauth> "
}

// Run reads commands until EOF, "exit" or ctx is done.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to GophAuth console (type 'help' for commands)")

	for ctx.Err() == nil {
		fmt.Fprint(a.out, a.prompt())
		line, err := a.in.ReadString('\n')
		if err != nil && line == "" {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			fmt.Fprintln(a.out, "Available commands: register, login, logout, whoami, activity [n], check <user> <token>, exit")
		case "register":
			a.register(ctx)
		case "login":
			a.login(ctx)
		case "logout":
			a.userName, a.token = "", ""
			fmt.Fprintln(a.out, "Logged out")
		case "whoami":
			a.whoami(ctx)
		case "activity":
			a.activity(ctx, args)
		case "check":
			a.check(ctx, args)
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		default:
			fmt.Fprintln(a.out, "Unknown command:", cmd)
		}
	}
}

func (a *App) readCredentials() (string, []byte, error) {
	userName, err := GetSimpleText(a.in, "Enter user name", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

func (a *App) register(ctx context.Context) {
	userName, password, err := a.readCredentials()
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	defer common.WipeByteArray(password)

	fullName, err := GetSimpleText(a.in, "Enter full name", a.out)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}

	if _, err := a.auth.Register(ctx, userName, string(password), fullName); err != nil {
		fmt.Fprintln(a.out, describe(err))
		return
	}
	fmt.Fprintln(a.out, "Success!")
}

func (a *App) login(ctx context.Context) {
	userName, password, err := a.readCredentials()
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	defer common.WipeByteArray(password)

	token, err := a.auth.Login(ctx, userName, string(password))
	if err != nil {
		fmt.Fprintln(a.out, describe(err))
		return
	}

	a.userName, a.token = userName, token
	fmt.Fprintln(a.out, "Logged in. Session token:", token)
}

func (a *App) whoami(ctx context.Context) {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in")
		return
	}
	if !a.auth.IsAuthorized(ctx, a.userName, a.token) {
		fmt.Fprintln(a.out, a.userName, "(session expired)")
		return
	}
	fmt.Fprintln(a.out, a.userName)
}

func (a *App) activity(ctx context.Context, args []string) {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in")
		return
	}

	var (
		entries []time.Time
		err     error
	)
	if len(args) > 0 {
		n, convErr := strconv.Atoi(args[0])
		if convErr != nil {
			fmt.Fprintln(a.out, "Usage: activity [n]")
			return
		}
		if !a.auth.IsAuthorized(ctx, a.userName, a.token) {
			fmt.Fprintln(a.out, describe(common.ErrorUnauthorized))
			return
		}
		entries, err = a.auth.RecentActivity(ctx, a.userName, n)
	} else {
		entries, err = a.auth.AuthorizedActivity(ctx, a.userName, a.token)
	}
	if err != nil {
		fmt.Fprintln(a.out, describe(err))
		return
	}

	for _, at := range entries {
		fmt.Fprintln(a.out, at.Format(time.RFC3339))
	}
}

func (a *App) check(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: check <user> <token>")
		return
	}
	if a.auth.IsAuthorized(ctx, args[0], args[1]) {
		fmt.Fprintln(a.out, "valid")
		return
	}
	fmt.Fprintln(a.out, "invalid")
}

func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrorConflict):
		return "User already exists"
	case errors.Is(err, common.ErrorUnauthorized):
		return "Invalid credentials"
	case errors.Is(err, common.ErrorNotFound):
		return "User not found"
	case errors.Is(err, common.ErrorInvalidUsername):
		return "Username must not be empty"
	default:
		return "Internal error, see server log"
	}
}
