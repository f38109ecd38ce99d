package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/myrjola/billeffect/internal/e2etest"
	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/logging"
	"github.com/myrjola/billeffect/internal/store"
)

const smokeBill = `H.R. 1: Smoke Test Act

Section 1. This Act exists to check that a deployment can analyze and simulate a bill.`

// TestSimulation loads a bill, runs a simulation and waits for its events.
func TestSimulation(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute) //nolint:mnd // remote analysis is slow.
	defer cancel()

	doc, err := client.SubmitForm(ctx, "/", "/bill", url.Values{"content": {smokeBill}})
	if err != nil {
		return errors.Wrap(err, "load bill")
	}
	if title := doc.Find("#bill-title").Text(); title != "H.R. 1: Smoke Test Act" {
		return errors.New("unexpected bill title", slog.String("title", title))
	}
	if _, err = client.SubmitForm(ctx, "/", "/simulation", nil); err != nil {
		return errors.Wrap(err, "start simulation")
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		var snapshot store.Snapshot
		if err = client.GetJSON(ctx, "/api/snapshot", &snapshot); err != nil {
			return errors.Wrap(err, "get snapshot")
		}
		switch {
		case snapshot.Status.Analyzing:
		case snapshot.Status.LastError != "":
			return errors.New("simulation failed", slog.String("error", snapshot.Status.LastError))
		case snapshot.EventCount > 0:
			if _, err = client.SubmitForm(ctx, "/", "/bill/clear", nil); err != nil {
				return errors.Wrap(err, "clear bill")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "wait for simulation")
		case <-ticker.C:
		}
	}
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestSimulation(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing simulation", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
