// Command councilmember runs one peer of the nine-member council-election
// cluster.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adelaide/council/internal/clog"
	"adelaide/council/internal/config"
	"adelaide/council/internal/member"
	"adelaide/council/internal/profile"
)

const shutdownGrace = 2 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("councilmember", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		profileName  string
		proposeValue string
		proposeDelay int
		configPath   string
		verbose      bool
	)
	fs.StringVar(&profileName, "profile", "standard", "network/failure profile: reliable|standard|latent|failing")
	fs.StringVar(&proposeValue, "propose", "", "candidate value to propose after --propose-delay")
	fs.IntVar(&proposeDelay, "propose-delay", 300, "delay in ms before proposing")
	fs.StringVar(&configPath, "config", "network.config", "path to the static peer table")
	fs.BoolVar(&verbose, "verbose", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: councilmember <Mi> --profile <reliable|standard|latent|failing> [--propose Mx] [--propose-delay ms] [--config path] [--verbose]")
	}

	if len(args) < 1 {
		fs.Usage()
		return 2
	}
	memberID := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	if verbose {
		clog.SetVerbose()
	}

	table, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	prof := profile.New(profile.ParseKind(profileName), seedFor(memberID))

	m, err := member.New(memberID, table, prof)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- m.Serve(ctx)
	}()

	if proposeValue != "" {
		go func() {
			select {
			case <-time.After(time.Duration(proposeDelay) * time.Millisecond):
			case <-ctx.Done():
				return
			}
			m.Propose(ctx, proposeValue)
		}()
	}

	select {
	case err := <-serveErr:
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	case <-ctx.Done():
		<-time.After(shutdownGrace)
	}
	return 0
}

// seedFor derives a distinct PRNG seed per member, so profiles never share
// a random stream.
func seedFor(memberID string) int64 {
	var h int64 = 1469598103934665603
	for i := 0; i < len(memberID); i++ {
		h ^= int64(memberID[i])
		h *= 1099511628211
	}
	return h ^ time.Now().UnixNano()
}
