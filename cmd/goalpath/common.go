package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/metalagman/goalpath/internal/app"
	"github.com/metalagman/goalpath/internal/tools"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

const stopTimeout = 5 * time.Second

// withService starts the application, hands the requested service to fn and
// stops the application again.
func withService[T any](ctx context.Context, c *cli, fn func(T) error) error {
	var svc T
	fxApp := app.New(c.cfg, fx.Populate(&svc))
	if err := fxApp.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := fxApp.Stop(stopCtx); err != nil {
			log.Warn().Err(err).Msg("stop application")
		}
	}()
	return fn(svc)
}

// runUntilDone starts an application built with opts and blocks until ctx is
// cancelled or the application asks to shut down.
func runUntilDone(ctx context.Context, c *cli, opts ...fx.Option) error {
	fxApp := app.New(c.cfg, opts...)
	if err := fxApp.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case sig := <-fxApp.Wait():
		log.Debug().Int("exit_code", sig.ExitCode).Msg("application shutdown requested")
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return fxApp.Stop(stopCtx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func resultError(res tools.Result) error {
	if res.OK {
		return nil
	}
	return fmt.Errorf("%s: %s", res.Kind, res.Error)
}

func optionalString(changed bool, value string) *string {
	if !changed {
		return nil
	}
	return &value
}

func optionalInt(changed bool, value int) *int {
	if !changed {
		return nil
	}
	return &value
}
