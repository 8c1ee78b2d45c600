package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	ext "github.com/reugn/kadence/extension"
	"github.com/reugn/kadence/protocol"
)

const requestTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "kadencectl: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "kadencectl",
		Usage:  "Query a running kadence daemon",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "socket",
				Usage:   "query socket path",
				EnvVars: []string{"KADENCE_SOCKET_PATH"},
				Value:   filepath.Join(os.TempDir(), "kadence"),
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "request type",
				Value: protocol.TypeGetLiveMetrics,
			},
			&cli.Uint64Flag{
				Name:  "session",
				Usage: "session id, 0 for the daemon default",
			},
			&cli.DurationFlag{
				Name:  "watch",
				Usage: "repeat the request at this interval",
			},
		},
		Action: query,
	}
}

// query sends the request once, or every watch interval until the
// context is canceled.
func query(c *cli.Context) error {
	ctx := c.Context
	client, err := ext.Dial(ctx, c.String("socket"))
	if err != nil {
		return err
	}
	defer client.Close()

	var session *uint64
	if id := c.Uint64("session"); id != 0 {
		session = &id
	}
	requestType := c.String("type")

	send := func(id int) error {
		queryCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		line, err := client.Query(queryCtx, id, requestType, session)
		if err != nil {
			return err
		}
		_, err = c.App.Writer.Write(line)
		return err
	}

	watch := c.Duration("watch")
	if err := send(1); err != nil || watch <= 0 {
		return err
	}

	ticker := time.NewTicker(watch)
	defer ticker.Stop()
	for id := 2; ; id++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := send(id); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		}
	}
}
