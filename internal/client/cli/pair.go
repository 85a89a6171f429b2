package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/antonpetrovs/whisperline/internal/client/pairing"
)

// link runs the established-device side: request a pairing token and print
// the payload for the new device to scan or paste.
func (a *App) link(ctx context.Context) {
	if !a.isUnlocked() {
		fmt.Println("Log in first")
		return
	}

	p, err := a.pair.Initiate(ctx, a.config.ServerAddr)
	if err != nil {
		fmt.Println("Pairing failed:", err)
		return
	}

	fmt.Println("On the new device, run 'pair' and enter:")
	fmt.Println()
	fmt.Println("  " + pairing.BuildURI(p))
	fmt.Println()
	fmt.Println("The code is valid for one minute and works once.")
}

// scan runs the new-device side: read the payload, redeem it and pull the
// full history.
func (a *App) scan(ctx context.Context) {
	raw, err := GetSimpleText(a.reader, "Paste the pairing code", os.Stdout)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	p, format, err := pairing.Parse(raw)
	if err != nil {
		fmt.Println("Unrecognized pairing code:", err)
		return
	}
	if format == pairing.FormatRaw {
		fmt.Println("This code has no encryption key; use the full pairing code from 'link'")
		return
	}

	user, err := a.pair.Redeem(ctx, p)
	if err != nil {
		fmt.Println("Pairing failed:", err)
		return
	}
	a.user = user

	a.startBackground(ctx)
	if err := a.engine.Cycle(ctx); err != nil {
		a.log.Debug(ctx, "post-pairing sync", "error", err)
	}
	fmt.Println("Paired as", user.Email)
}
