package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if a.user != nil {
		s = a.user.Email
	}
	if a.isUnlocked() {
		s += " unlocked"
	} else if s != "" {
		s += " locked"
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", strings.TrimSpace(s))
	}
	return s
}

func (a *App) Root(ctx context.Context) {

	fmt.Println("Welcome to Whisperline CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("wl %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isUnlocked() {
				fmt.Println("Available commands: send <text>, (l)ist, sync, link, export, import, logout, exit")
			} else {
				fmt.Println("Available commands: register, login, pair, list, import, exit")
			}

		case "register":
			a.register(ctx)
		case "login":
			a.login(ctx)
		case "send":
			a.send(ctx, strings.Join(args, " "))
		case "l", "list":
			a.list(ctx)
		case "sync":
			a.sync(ctx)
		case "link":
			a.link(ctx)
		case "pair", "scan":
			a.scan(ctx)
		case "export":
			a.exportBackup(ctx, args)
		case "import":
			a.importBackup(ctx, args)
		case "logout":
			a.logout(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return

		default:
			fmt.Println("Unknown command:", cmd)
		}
	}

}
