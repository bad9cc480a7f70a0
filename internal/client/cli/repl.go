package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. The real App
// satisfies it; tests provide a lightweight stub.
type execIface interface {
	isConnected() bool
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	List(ctx context.Context, query string) error
	NextPage(ctx context.Context) error
	PrevPage(ctx context.Context) error
	Create(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Decrypt(ctx context.Context, id string) error
	Hide(ctx context.Context, id string) error
	Refresh(ctx context.Context) error
	Check(ctx context.Context) error
	Status(ctx context.Context) error
}

// runREPL reads commands from reader until EOF or "exit" and dispatches them
// to a. Handler errors are printed and never end the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "sk %s> ", statusFn())
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isConnected() {
				fmt.Fprintln(w, "Available commands: (l)ist [query], next, prev, create, show <id>, decrypt <id>, hide <id>, refresh, check, status, disconnect, exit")
			} else {
				fmt.Fprintln(w, "Available commands: connect, check, exit")
			}

		case "connect":
			cmdErr = a.Connect(ctx)

		case "disconnect":
			cmdErr = a.Disconnect(ctx)

		case "l", "list":
			cmdErr = a.List(ctx, strings.Join(args, " "))

		case "next":
			cmdErr = a.NextPage(ctx)

		case "prev":
			cmdErr = a.PrevPage(ctx)

		case "create":
			cmdErr = a.Create(ctx)

		case "show", "decrypt", "hide":
			if len(args) != 1 {
				fmt.Fprintf(w, "Usage: %s <id>\n", cmd)
				continue
			}
			switch cmd {
			case "show":
				cmdErr = a.Show(ctx, args[0])
			case "decrypt":
				cmdErr = a.Decrypt(ctx, args[0])
			default:
				cmdErr = a.Hide(ctx, args[0])
			}

		case "refresh":
			cmdErr = a.Refresh(ctx)

		case "check":
			cmdErr = a.Check(ctx)

		case "status":
			cmdErr = a.Status(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "error:", cmdErr)
		}
	}
}

func (a *App) promptStatus() string {
	s := ""
	if addr := a.wallet.Address(); addr != "" {
		s = shortAddress(addr) + " "
	}
	if m := a.Mode(); m != "" {
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s) ", strings.TrimSpace(s))
	}
	return s
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// Root connects, starts the online watcher and runs the REPL until the user
// exits or ctx is done.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to SealKeeper CLI (type 'help' for commands)")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	_ = a.Connect(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.promptStatus, a.reader, a.out)
}
