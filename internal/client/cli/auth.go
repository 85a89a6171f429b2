package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/antonpetrovs/whisperline/internal/client/api"
	"github.com/antonpetrovs/whisperline/internal/client/models"
	"github.com/antonpetrovs/whisperline/internal/client/repositories/metadata"
	"github.com/antonpetrovs/whisperline/internal/common"
	"github.com/antonpetrovs/whisperline/internal/cryptox"
)

func (a *App) register(ctx context.Context) {

	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer common.WipeByteArray(password)

	resp, err := a.api.Register(ctx, email, string(password))
	if err != nil {
		if errors.Is(err, common.ErrUserAlreadyExists) {
			fmt.Println("An account with this email already exists")
		} else {
			fmt.Println("Registration failed:", err)
		}
		return
	}

	if err := a.adoptAccount(ctx, &resp.User, string(password)); err != nil {
		fmt.Println("error:", err)
		return
	}

	a.startBackground(ctx)
	fmt.Println("Registered and logged in as", resp.User.Email)
}

func (a *App) login(ctx context.Context) {

	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer common.WipeByteArray(password)

	resp, err := a.api.Login(ctx, email, string(password))
	if err != nil {
		if errors.Is(err, api.ErrUnavailable) {
			fmt.Println("Server unavailable; stored messages remain readable after a previous login")
		} else {
			fmt.Println("Login failed:", err)
		}
		return
	}

	if err := a.adoptAccount(ctx, &resp.User, string(password)); err != nil {
		fmt.Println("error:", err)
		return
	}

	a.startBackground(ctx)
	if err := a.engine.Cycle(ctx); err != nil {
		a.log.Debug(ctx, "initial sync", "error", err)
	}
	fmt.Println("Logged in as", resp.User.Email)
}

// adoptAccount derives the master key from the password and the account
// salt, unlocks the keyring and persists the account locally.
func (a *App) adoptAccount(ctx context.Context, u *models.User, password string) error {
	key, err := cryptox.DeriveMasterKey(password, u.EncryptionSalt)
	if err != nil {
		return err
	}
	a.keys.Set(key)
	common.WipeByteArray(key)
	a.user = u

	userJSON, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := a.repos.Metadata.Set(ctx, metadata.KeyUser, string(userJSON)); err != nil {
		return err
	}
	return a.repos.Metadata.Set(ctx, metadata.KeySalt, u.EncryptionSalt)
}

func (a *App) logout(ctx context.Context) {
	if err := a.api.Logout(ctx); err != nil {
		fmt.Println("Logout warning:", err)
	}
	a.stopBackground()
	a.keys.Clear()
	a.sessions.Clear()
	fmt.Println("Logged out; local messages are kept")
}
