package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"sort"

	"github.com/jrsteele09/go-auth-client/authorize"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/fragment"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/management"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/pkg/errors"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"authorize-url": {"print an authorize URL and store its transaction", authorizeURL},
	"parse-hash":    {"validate a redirect fragment or query", parseHash},
	"exchange-code": {"redeem the code in a redirect query", exchangeCode},
	"login":         {"log in with username and password", login},
	"userinfo":      {"fetch the profile for an access token", userInfo},
	"get-user":      {"fetch a user through the management API", getUser},
	"patch-user":    {"update a user's attributes or metadata", patchUser},
	"logout-url":    {"print the logout URL", logoutURL},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newFlagSet(name string, a *app) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func authorizeURL(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("authorize-url", a)
	connection := fs.String("connection", "", "identity provider connection")
	prompt := fs.String("prompt", "", "prompt parameter")
	appState := fs.String("app-state", "", "opaque value returned with the result")
	if err := fs.Parse(args); err != nil {
		return err
	}

	authURL, err := a.auth.Authorize(ctx, oauthmodel.AuthorizeRequest{
		Connection: *connection,
		Prompt:     *prompt,
		AppState:   *appState,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, authURL)
	return err
}

func parseHash(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("parse-hash", a)
	state := fs.String("state", "", "expected state when no transaction was stored")
	nonce := fs.String("nonce", "", "expected nonce when no transaction was stored")
	responseType := fs.String("response-type", "", "response type requested with -state")
	idpInitiated := fs.Bool("idp-initiated", false, "accept responses without a transaction")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("[parse-hash] expected the redirect URL or fragment as the only argument")
	}

	result, err := a.auth.ParseHash(ctx, fragment.ParseHashOptions{
		Hash:                    fs.Arg(0),
		State:                   *state,
		Nonce:                   *nonce,
		ResponseType:            oauthmodel.ResponseType(*responseType),
		EnableIdPInitiatedLogin: *idpInitiated,
	})
	if err != nil {
		return err
	}
	if result == nil {
		return errors.New("[parse-hash] no authorization response found")
	}
	return a.print(result)
}

func exchangeCode(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("exchange-code", a)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("[exchange-code] expected the redirect URL as the only argument")
	}
	result, err := a.auth.ExchangeCode(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return a.print(result)
}

func login(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login", a)
	username := fs.String("username", "", "username or email")
	password := fs.String("password", "", "password")
	realm := fs.String("realm", "", "database connection; empty uses the default directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	o := credentials.LoginOptions{Username: *username, Password: *password, Realm: *realm}
	var (
		result *oauthmodel.AuthResult
		err    error
	)
	if *realm == "" {
		result, err = a.auth.LoginWithDefaultDirectory(ctx, o)
	} else {
		result, err = a.auth.Login(ctx, o)
	}
	if err != nil {
		return err
	}
	return a.print(result)
}

func userInfo(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("userinfo", a)
	token := fs.String("access-token", "", "access token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	profile, err := a.auth.UserInfo(ctx, *token)
	if err != nil {
		return err
	}
	return a.print(profile)
}

func getUser(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("get-user", a)
	userID := fs.String("id", "", "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := a.management()
	if err != nil {
		return err
	}
	user, err := client.GetUser(ctx, *userID)
	if err != nil {
		return err
	}
	return a.print(user)
}

func patchUser(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("patch-user", a)
	userID := fs.String("id", "", "user id")
	blocked := fs.String("blocked", "", "true or false; empty leaves it unchanged")
	emailVerified := fs.String("email-verified", "", "true or false; empty leaves it unchanged")
	metadata := fs.String("metadata", "", "JSON object merged into user_metadata")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		attrs management.UserAttributes
		err   error
	)
	if attrs.Blocked, err = utils.OptionalBool(*blocked); err != nil {
		return err
	}
	if attrs.EmailVerified, err = utils.OptionalBool(*emailVerified); err != nil {
		return err
	}
	if *metadata != "" {
		if err := json.Unmarshal([]byte(*metadata), &attrs.UserMetadata); err != nil {
			return errors.Wrap(err, "[patch-user] metadata must be a JSON object")
		}
	}

	client, err := a.management()
	if err != nil {
		return err
	}
	user, err := client.PatchUserAttributes(ctx, *userID, attrs)
	if err != nil {
		return err
	}
	return a.print(user)
}

func logoutURL(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("logout-url", a)
	returnTo := fs.String("return-to", "", "where to land after logout")
	federated := fs.Bool("federated", false, "also end the identity provider session")
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := a.auth.LogoutURL(authorize.LogoutOptions{ReturnTo: *returnTo, Federated: *federated})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, u)
	return err
}
