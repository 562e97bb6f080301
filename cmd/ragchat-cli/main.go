package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ragchat-io/ragchat/internal/client"
)

var (
	serverURL = flag.String("server", "http://localhost:8080", "ragchat server base URL")
	prefsPath = flag.String("prefs", "", "Path to the preference database (default ~/.ragchat/prefs.db)")
)

func main() {
	flag.Parse()

	path := *prefsPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		path = filepath.Join(home, ".ragchat", "prefs.db")
	}

	prefs, err := client.OpenPrefStore(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open preferences: %v\n", err)
		os.Exit(1)
	}
	defer prefs.Close()

	systemPrompt, err := prefs.Get(client.PrefSystemPrompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read preferences: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	session := client.NewSession(client.New(*serverURL), systemPrompt, client.Hooks{
		OnDelta: func(text string) {
			fmt.Print(text)
		},
		OnStatus: func(status string) {
			fmt.Printf("\n  [%s]\n", status)
		},
		OnError: func(msg string) {
			fmt.Printf("\n  ! %s\n", msg)
		},
		OnNotice: func(msg string) {
			fmt.Printf("  %s\n", msg)
		},
	})

	fmt.Println("ragchat - type a message, /system <prompt>, /theme <light|dark>, or /quit")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return
		case strings.HasPrefix(line, "/system "):
			prompt := strings.TrimPrefix(line, "/system ")
			if err := prefs.Set(client.PrefSystemPrompt, prompt); err != nil {
				fmt.Fprintf(os.Stderr, "cannot save system prompt: %v\n", err)
				continue
			}
			fmt.Println("system prompt saved; takes effect on restart")
		case strings.HasPrefix(line, "/theme "):
			theme := strings.TrimPrefix(line, "/theme ")
			if theme != "light" && theme != "dark" {
				fmt.Println("theme must be light or dark")
				continue
			}
			if err := prefs.Set(client.PrefTheme, theme); err != nil {
				fmt.Fprintf(os.Stderr, "cannot save theme: %v\n", err)
				continue
			}
			fmt.Println("theme saved")
		default:
			if !session.Send(ctx, line) {
				fmt.Println("a message is already in flight")
			}
			fmt.Println()
		}

		if ctx.Err() != nil {
			return
		}
	}
}
