package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/starford/smartstudy/internal"
	"github.com/starford/smartstudy/internal/mcpserver"
	"github.com/starford/smartstudy/internal/state"
	"github.com/starford/smartstudy/internal/storage"
	"github.com/starford/smartstudy/internal/transfer"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// withServices loads the config, opens the store and runs fn. Logs go to
// stderr so command output on stdout stays clean.
func withServices(ctx context.Context, cmd *cli.Command, fn func(*internal.Services) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	slog.SetDefault(logger)

	svcs, err := internal.OpenServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	runErr := fn(svcs)
	if err := svcs.Close(context.Background()); err != nil {
		logger.Error("close services", slog.String("error", err.Error()))
	}
	return runErr
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API server (default)",
		Action: run,
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write an export bundle",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file (default smartstudy-export-YYYY-MM-DD.json)",
			},
			&cli.StringSliceFlag{
				Name:  "subject",
				Usage: "Subject id to export; repeat for several (default all)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withServices(ctx, cmd, func(svcs *internal.Services) error {
				sel := transfer.SelectAll(svcs.Study.Snapshot())
				if ids := cmd.StringSlice("subject"); len(ids) > 0 {
					sel = transfer.Selection{SubjectIDs: ids, AllNotes: true}
				}
				b := svcs.Study.Export(sel)

				out := cmd.String("out")
				if out == "" {
					out = fmt.Sprintf("smartstudy-export-%s.json", b.ExportedAt.Format("2006-01-02"))
				}
				if err := writeBundleFile(out, b); err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "exported %d subjects, %d notes to %s\n",
					len(b.Data.Subjects), len(b.Data.Notes), out)
				return nil
			})
		},
	}
}

func writeBundleFile(path string, b transfer.Bundle) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	dir, err := storage.NewFS(filepath.Dir(abs))
	if err != nil {
		return fmt.Errorf("open output dir: %w", err)
	}
	var buf bytes.Buffer
	if err := transfer.Encode(&buf, b); err != nil {
		return err
	}
	if err := dir.Write(filepath.Base(abs), buf.Bytes()); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import an export bundle",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "copy (fresh ids) or merge (overwrite by id)",
				Value: string(transfer.StrategyCopy),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Only print what the bundle contains",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return errors.New("import: bundle file is required")
			}
			strategy, err := transfer.ParseStrategy(cmd.String("strategy"))
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open bundle: %w", err)
			}
			defer f.Close()
			b, err := transfer.Decode(f)
			if err != nil {
				return err
			}

			return withServices(ctx, cmd, func(svcs *internal.Services) error {
				pending := svcs.Study.StageImport(b, filepath.Base(path))
				if cmd.Bool("dry-run") {
					svcs.Study.DiscardImport(pending.Token)
					return printJSON(os.Stdout, pending.Preview)
				}
				rep, err := svcs.Study.CommitImport(ctx, pending.Token, strategy)
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, rep)
			})
		},
	}
}

func trashCommand() *cli.Command {
	yes := &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Do not ask for confirmation",
	}
	return &cli.Command{
		Name:  "trash",
		Usage: "Inspect and manage deleted items",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List trashed items",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withServices(ctx, cmd, func(svcs *internal.Services) error {
						tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
						fmt.Fprintln(tw, "ID\tTYPE\tNAME\tDELETED")
						for _, it := range svcs.Study.Trash() {
							fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Type, it.OriginalName,
								it.DeletedAt.Local().Format(time.DateTime))
						}
						return tw.Flush()
					})
				},
			},
			{
				Name:      "restore",
				Usage:     "Restore a trashed item",
				ArgsUsage: "<trash-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id := cmd.Args().First()
					if id == "" {
						return errors.New("restore: trash id is required")
					}
					return withServices(ctx, cmd, func(svcs *internal.Services) error {
						res, err := svcs.Study.Dispatch(ctx, state.Restore{TrashID: id})
						if err != nil {
							return err
						}
						fmt.Fprintln(os.Stdout, restoreMessage(id, res.Restored))
						return nil
					})
				},
			},
			{
				Name:      "purge",
				Usage:     "Permanently delete one trashed item, or all of them with --all",
				ArgsUsage: "[trash-id]",
				Flags: []cli.Flag{
					yes,
					&cli.BoolFlag{Name: "all", Usage: "Empty the whole trash"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id := cmd.Args().First()
					all := cmd.Bool("all")
					if id == "" && !all {
						return errors.New("purge: trash id or --all is required")
					}

					prompt := fmt.Sprintf("Permanently delete %s?", id)
					var action state.Action = state.Purge{TrashID: id}
					if all {
						prompt = "Permanently delete everything in the trash?"
						action = state.EmptyTrash{}
					}
					if !cmd.Bool("yes") {
						ok, err := confirm(os.Stdin, os.Stderr, prompt)
						if err != nil {
							return err
						}
						if !ok {
							fmt.Fprintln(os.Stderr, "aborted")
							return nil
						}
					}

					return withServices(ctx, cmd, func(svcs *internal.Services) error {
						res, err := svcs.Study.Dispatch(ctx, action)
						if err != nil {
							return err
						}
						fmt.Fprintf(os.Stdout, "purged %d\n", res.Purged)
						return nil
					})
				},
			},
		},
	}
}

// restoreMessage reports a restore; an unknown id is a no-op, not a failure.
func restoreMessage(id string, restored bool) string {
	if restored {
		return "restored " + id
	}
	return fmt.Sprintf("nothing to restore: %s is not in the trash", id)
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve-mcp",
		Usage: "Serve the MCP tool interface over stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withServices(ctx, cmd, func(svcs *internal.Services) error {
				return mcpserver.New(svcs.Study, svcs.Files).ServeStdio()
			})
		},
	}
}

// confirm asks a yes/no question on an interactive terminal. Without a
// terminal the caller has to pass --yes.
func confirm(in *os.File, out io.Writer, prompt string) (bool, error) {
	if !term.IsTerminal(int(in.Fd())) {
		return false, errors.New("refusing to purge without a terminal; pass --yes")
	}
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
