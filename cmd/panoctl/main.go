// Panoctl is the command-line client for monitoring and controlling a
// running panoramad instance. It connects over HTTP and WebSocket to
// drive capture sessions and stream live events from the daemon.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/roomloft/panorama-engine/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8080", "Panorama daemon URL (e.g. http://192.168.8.1:8080)")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter session_state,log)")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags like --profile are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	// ── Query commands ────────────────────────────────────────────
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "health":
		err = ctl.Health(*host, *jsonOut)

	case "version":
		err = ctl.VersionInfo(*host, *jsonOut)

	case "profiles":
		err = ctl.Profiles(*host, *jsonOut)

	case "config":
		err = ctl.Config(*host, *jsonOut)

	case "config-list":
		err = ctl.ConfigList(*host, *jsonOut)

	case "sessions":
		err = ctl.Sessions(*host, *jsonOut)

	case "artifacts":
		opts := ctl.ArtifactsOptions{JSON: *jsonOut}
		artFlags := pflag.NewFlagSet("artifacts", pflag.ContinueOnError)
		artFlags.StringVar(&opts.Delete, "delete", "", "Delete a panorama by artifact ID")
		artFlags.StringVar(&opts.Validate, "validate", "", "Validate a stored panorama by artifact ID")
		_ = artFlags.Parse(subArgs)
		err = ctl.Artifacts(*host, opts)

	case "stats":
		err = ctl.Stats(*host, *jsonOut)

	case "logs":
		opts := ctl.LogsOptions{JSON: *jsonOut}
		logFlags := pflag.NewFlagSet("logs", pflag.ContinueOnError)
		logFlags.StringVar(&opts.Level, "level", "", "Filter by log level (info, error, warn)")
		logFlags.IntVar(&opts.Limit, "limit", 0, "Limit number of log entries shown")
		logFlags.BoolVar(&opts.Tail, "tail", false, "Stream live log events (like watch --filter log)")
		_ = logFlags.Parse(subArgs)
		err = ctl.Logs(*host, opts)

	case "system-info":
		err = ctl.SystemInfo(*host, *jsonOut)

	// ── Session control ───────────────────────────────────────────
	case "open":
		opts := ctl.OpenOptions{JSON: *jsonOut}
		openFlags := pflag.NewFlagSet("open", pflag.ContinueOnError)
		openFlags.StringVar(&opts.Mode, "mode", "guided", "Capture mode (guided, automatic, manual)")
		openFlags.StringVar(&opts.Profile, "profile", "", "Quality profile (standard, high, maximum)")
		openFlags.StringVar(&opts.Room, "room", "", "Room label stored in panorama metadata")
		_ = openFlags.Parse(subArgs)
		err = ctl.Open(*host, opts)

	case "session":
		if len(subArgs) < 1 {
			fmt.Fprintln(os.Stderr, "error: session requires a session ID")
			os.Exit(2)
		}
		id := subArgs[0]
		action := "info"
		actionArgs := subArgs[1:]
		if len(actionArgs) > 0 {
			action = actionArgs[0]
			actionArgs = actionArgs[1:]
		}

		switch action {
		case "info":
			err = ctl.SessionInfo(*host, id, *jsonOut)
		case "start":
			err = ctl.SessionStart(*host, id, *jsonOut)
		case "mode":
			if len(actionArgs) < 1 {
				fmt.Fprintln(os.Stderr, "error: session mode requires a mode name")
				os.Exit(2)
			}
			err = ctl.SessionMode(*host, id, actionArgs[0], *jsonOut)
		case "profile":
			if len(actionArgs) < 1 {
				fmt.Fprintln(os.Stderr, "error: session profile requires a profile name")
				os.Exit(2)
			}
			err = ctl.SessionProfile(*host, id, actionArgs[0], *jsonOut)
		case "capture":
			err = ctl.SessionCapture(*host, id, *jsonOut)
		case "retake":
			if len(actionArgs) < 1 {
				fmt.Fprintln(os.Stderr, "error: session retake requires a frame ordinal")
				os.Exit(2)
			}
			var ordinal int
			ordinal, err = strconv.Atoi(actionArgs[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, "error: ordinal must be an integer")
				os.Exit(2)
			}
			err = ctl.SessionRetake(*host, id, ordinal, *jsonOut)
		case "finish":
			err = ctl.SessionFinish(*host, id, *jsonOut)
		case "close":
			err = ctl.SessionClose(*host, id, *jsonOut)
		default:
			fmt.Fprintln(os.Stderr, "error: unknown session action:", action)
			os.Exit(2)
		}

	case "reload":
		opts := ctl.ReloadOptions{JSON: *jsonOut}
		reloadFlags := pflag.NewFlagSet("reload", pflag.ContinueOnError)
		reloadFlags.StringVar(&opts.Profile, "profile", "", "Switch to a named config profile")
		_ = reloadFlags.Parse(subArgs)
		err = ctl.Reload(*host, opts)

	// ── Live streaming ────────────────────────────────────────────
	case "watch":
		err = ctl.Watch(*host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   *jsonOut,
		})

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`
  panoctl — panorama engine control CLI

  USAGE
    panoctl [flags] <command> [command-flags]

  COMMANDS (query)
    status          Show daemon uptime and live sessions
    health          Check daemon and component health
    version         Show CLI and daemon version information
    profiles        List the built-in quality profiles
    config          Show the daemon's running configuration
    config-list     List available config profiles
    sessions        List live capture sessions
    artifacts       List stored panoramas
    stats           Show aggregate session statistics
    logs            Show recent daemon log messages
    system-info     Show runtime and hardware information

  COMMANDS (session control)
    open            Open a new capture session
    session ID [ACTION]
                    Act on a session. Actions: info (default), start,
                    mode MODE, profile NAME, capture, retake N,
                    finish, close
    reload          Reload daemon configuration from disk

  COMMANDS (live)
    watch           Stream live events from the daemon (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8080)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  COMMAND FLAGS
    open:
        --mode MODE         Capture mode: guided, automatic, manual
        --profile NAME      Quality profile: standard, high, maximum
        --room LABEL        Room label stored in panorama metadata

    artifacts:
        --delete ID         Delete a panorama by artifact ID
        --validate ID       Validate a stored panorama by artifact ID

    logs:
        --level LEVEL       Filter by log level (info, error, warn)
        --limit N           Limit number of log entries shown
        --tail              Stream live log events

    reload:
        --profile NAME      Switch to a named config profile

  EXAMPLES
    panoctl status
    panoctl open --mode guided --profile high --room "living room"
    panoctl session 6f3a start
    panoctl session 6f3a retake 4
    panoctl watch --filter frame_captured,session_state

`)
}
