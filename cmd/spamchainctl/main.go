// Command spamchainctl is a demonstration and diagnostic CLI over the
// spamchain library: it loads a chain configuration, registers the
// filters spamchain ships (blacklist, bayes), and submits, trains on or
// resets against a message read from a file or stdin (JSON, or a raw RFC
// 5322 document with --raw). submit prints the immediate verdict, and the
// async verdict only when it differs from the immediate one. Grounded on cmd/maddyctl's App/Commands/Flags/Action shape,
// adapted to urfave/cli/v2's API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sievemail/spamchain/chain"
	"github.com/sievemail/spamchain/filter"
	"github.com/sievemail/spamchain/filters/bayes"
	"github.com/sievemail/spamchain/filters/blacklist"
	"github.com/sievemail/spamchain/log"
	"github.com/sievemail/spamchain/registry"
	"github.com/sievemail/spamchain/transcode"
	"github.com/urfave/cli/v2"
)

// configureLogging points the package-level log.DefaultLogger at the output
// --quiet/--log-file select, since every filter's own log.Logger (e.g.
// bayes.New's) carries no Out of its own and falls back to DefaultLogger.Out.
// It returns a close func the caller must run before exiting, which is a
// no-op unless a log file was opened.
func configureLogging(ctx *cli.Context) (closeFn func() error, err error) {
	if ctx.Bool("quiet") {
		log.DefaultLogger.Out = log.NopOutput{}
		return func() error { return nil }, nil
	}

	path := ctx.String("log-file")
	if path == "" {
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	fileOut := log.WriteCloserOutput(f, true)
	log.DefaultLogger.Out = log.MultiOutput(log.WriterOutput(os.Stderr, false), fileOut)
	return fileOut.Close, nil
}

func registerFilters(reg *registry.Registry, stateDir string) {
	blacklist.Register(reg, "blacklist")
	bayes.Register(reg, "bayes", stateDir)
}

func loadChain(ctx *cli.Context) (*chain.Chain, error) {
	reg := registry.NewRegistry()
	registerFilters(reg, ctx.String("state-dir"))

	raw, err := os.ReadFile(ctx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return chain.Load(reg, raw)
}

// rawMessage is the JSON-form shape submit and train read when --raw is not
// given: a JSON object mirroring filter.Message.
type rawMessage struct {
	Headers     map[string]string `json:"headers"`
	Body        string            `json:"body"`
	PeerAddress []string          `json:"peerAddress"`
}

// readMessage reads a message from path (or stdin, if path is "-" or
// empty). By default it expects the JSON rawMessage shape; with raw=true it
// instead parses path as a raw RFC 5322 (.eml) message via
// transcode.ParseMIME, so this CLI doubles as a way to exercise that path
// against real mail instead of only synthetic JSON fixtures.
func readMessage(path string, raw bool, peerAddress []string) (filter.Message, error) {
	var data []byte
	var err error
	if path == "-" || path == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return filter.Message{}, err
	}

	if raw {
		return transcode.ParseMIME(bytes.NewReader(data), peerAddress)
	}

	var rm rawMessage
	if err := json.Unmarshal(data, &rm); err != nil {
		return filter.Message{}, fmt.Errorf("parse message: %w", err)
	}
	return filter.Message{
		Headers:     filter.NewHeaders(rm.Headers),
		Body:        []byte(rm.Body),
		PeerAddress: rm.PeerAddress,
	}, nil
}

func submitCommand(ctx *cli.Context) error {
	c, err := loadChain(ctx)
	if err != nil {
		return err
	}

	msg, err := readMessage(ctx.String("message"), ctx.Bool("raw"), ctx.StringSlice("peer"))
	if err != nil {
		return err
	}

	err = c.SubmitSync(msg,
		func(v filter.Verdict) { fmt.Printf("immediate: %s\n", v) },
		func(v filter.Verdict) { fmt.Printf("async:     %s\n", v) },
	)
	return err
}

func trainCommand(ctx *cli.Context) error {
	c, err := loadChain(ctx)
	if err != nil {
		return err
	}

	msg, err := readMessage(ctx.String("message"), ctx.Bool("raw"), ctx.StringSlice("peer"))
	if err != nil {
		return err
	}

	c.Classify(msg, ctx.Bool("spam"))
	fmt.Println("trained")
	return nil
}

func resetCommand(ctx *cli.Context) error {
	c, err := loadChain(ctx)
	if err != nil {
		return err
	}
	c.ResetClassification()
	fmt.Println("reset")
	return nil
}

func main() {
	closeLog := func() error { return nil }

	app := &cli.App{
		Name:  "spamchainctl",
		Usage: "inspect and drive a spamchain filter chain",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the chain configuration JSON document",
				EnvVars: []string{"SPAMCHAIN_CONFIG"},
				Value:   "spamchain.json",
			},
			&cli.StringFlag{
				Name:    "state-dir",
				Usage:   "directory the bayes filter persists bayes-words.json under",
				EnvVars: []string{"SPAMCHAIN_STATE_DIR"},
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "discard all log output",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "also append log output to this file, in addition to stderr",
			},
		},
		Before: func(ctx *cli.Context) error {
			fn, err := configureLogging(ctx)
			if err != nil {
				return err
			}
			closeLog = fn
			return nil
		},
		After: func(ctx *cli.Context) error {
			return closeLog()
		},
		Commands: []*cli.Command{
			{
				Name:  "submit",
				Usage: "submit a message and print its immediate and async verdicts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "message",
						Usage: "path to a JSON message document, or - for stdin",
						Value: "-",
					},
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "parse message as a raw RFC 5322 (.eml) document instead of JSON",
					},
					&cli.StringSliceFlag{
						Name:  "peer",
						Usage: "peer address hop, client-first (repeatable)",
					},
				},
				Action: submitCommand,
			},
			{
				Name:  "train",
				Usage: "directly classify a message as spam or ham",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "message",
						Usage: "path to a JSON message document, or - for stdin",
						Value: "-",
					},
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "parse message as a raw RFC 5322 (.eml) document instead of JSON",
					},
					&cli.StringSliceFlag{
						Name:  "peer",
						Usage: "peer address hop, client-first (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "spam",
						Usage: "label the message as spam (default: ham)",
					},
				},
				Action: trainCommand,
			},
			{
				Name:   "reset",
				Usage:  "clear learned state on every filter in the chain",
				Action: resetCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, filepath.Base(os.Args[0])+":", err)
		os.Exit(1)
	}
}
