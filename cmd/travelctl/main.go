package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
)

const version = "1.0.0"

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := runCLI(ctx, os.Args[1:], os.Getenv, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("travelctl failed")
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: travelctl <command> [args]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  stats               Show cache statistics")
	fmt.Fprintln(w, "  info                Show cache statistics and entries")
	fmt.Fprintln(w, "  cleanup             Remove expired cache entries")
	fmt.Fprintln(w, "  clear               Remove all cache entries")
	fmt.Fprintln(w, "  flight <url>        Parse a flight booking page")
	fmt.Fprintln(w, "  lodging <url>       Parse a lodging booking page")
	fmt.Fprintln(w, "  help, -h            Show this help message")
	fmt.Fprintln(w, "  version, -v         Show the version")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  TRIPPARSE_URL       API base URL (default "+DefaultBaseURL+")")
	fmt.Fprintln(w, "  ADMIN_TOKEN         Bearer token for the cache commands (optional)")
}

func runCLI(ctx context.Context, args []string, getenv func(string) string, out io.Writer) error {
	if len(args) == 0 {
		printUsage(out)
		return nil
	}

	switch args[0] {
	case "help", "--help", "-h":
		printUsage(out)
		return nil
	case "version", "--version", "-v":
		fmt.Fprintln(out, "travelctl v"+version)
		return nil
	}

	client, err := NewClient(getenv("TRIPPARSE_URL"), WithToken(getenv("ADMIN_TOKEN")))
	if err != nil {
		return err
	}

	var data json.RawMessage
	switch args[0] {
	case "stats":
		data, err = client.Do(ctx, http.MethodGet, "/cache/stats", nil)
	case "info":
		data, err = client.Do(ctx, http.MethodGet, "/cache/info", nil)
	case "cleanup":
		data, err = client.Do(ctx, http.MethodPost, "/cache/cleanup", nil)
	case "clear":
		data, err = client.Do(ctx, http.MethodDelete, "/cache/clear", nil)
	case "flight", "lodging":
		if len(args) < 2 || strings.TrimSpace(args[1]) == "" {
			return fmt.Errorf("%s requires a booking url", args[0])
		}
		data, err = client.Do(ctx, http.MethodPost, "/parse-"+args[0], map[string]string{"link": args[1]})
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		_, err = out.Write(data)
		return err
	}
	pretty.WriteByte('\n')
	_, err = pretty.WriteTo(out)
	return err
}
