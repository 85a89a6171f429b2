package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/antonpetrovs/whisperline/internal/client/syncer"
)

func (a *App) send(ctx context.Context, text string) {
	if text == "" {
		fmt.Println("Usage: send <text>")
		return
	}
	if !a.isUnlocked() {
		fmt.Println("Log in or pair this device first")
		return
	}

	m, err := a.engine.Send(ctx, text)
	if err != nil {
		fmt.Println("Send failed:", err)
		return
	}
	fmt.Println("Sent", m.ID)
}

func (a *App) list(ctx context.Context) {
	all, err := a.repos.Messages.ListAll(ctx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if len(all) == 0 {
		fmt.Println("No messages yet")
		return
	}
	for _, m := range all {
		status := "synced"
		if !m.Synced {
			status = "pending"
		}
		text := m.PlaintextCache
		if text == "" {
			text = "(unreadable on this device)"
		}
		fmt.Printf("%s  [%s]  %s\n", m.SentAt.Local().Format("2006-01-02 15:04:05"), status, text)
	}
}

func (a *App) sync(ctx context.Context) {
	err := a.engine.Cycle(ctx)
	switch {
	case err == nil:
		fmt.Println("Sync complete")
	case errors.Is(err, syncer.ErrSyncBusy):
		fmt.Println("Sync already running")
	default:
		fmt.Println("Sync failed:", err)
	}
}
