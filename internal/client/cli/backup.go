package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/antonpetrovs/whisperline/internal/filex"
)

const backupDirName = "backups"

func (a *App) exportBackup(ctx context.Context, args []string) {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		dir, err := filex.EnsureSubDir(backupDirName)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		path = filepath.Join(dir, time.Now().Format("whisperline-20060102-150405.json"))
	}

	f, err := os.Create(path)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer f.Close()

	if err := a.backup.Export(ctx, f); err != nil {
		fmt.Println("Export failed:", err)
		return
	}
	fmt.Println("Exported to", path)
}

func (a *App) importBackup(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: import <file>")
		return
	}

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer f.Close()

	n, err := a.backup.Import(ctx, f)
	if err != nil {
		fmt.Println("Import failed:", err)
		return
	}
	fmt.Printf("Imported %d new messages; they will push on the next sync\n", n)
}
