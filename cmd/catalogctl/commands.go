package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"catalogd/internal/catalog"
	"catalogd/internal/config"
	"catalogd/pkg/cfg"
)

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "catalogctl",
		Usage:  "browse the course catalog through the local response cache",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML config file or inline content",
				Sources: cli.NewValueSourceChain(cli.EnvVar("APP_CONFIG")),
			},
			&cli.StringFlag{
				Name:  "upstream",
				Usage: "catalog API base URL",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "cache store driver (file, memory, redis, sqlite, none)",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "directory for the file store",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "lifetime of newly cached responses",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "always go upstream",
			},
		},
		Commands: []*cli.Command{
			coursesCommand(),
			courseCommand(),
			categoriesCommand(),
			cacheCommand(),
		},
	}
}

// openClient builds a client from config plus the root flags. A one-shot
// process gains nothing from an in-memory cache, so the default memory
// driver becomes the file store unless --store says otherwise.
func openClient(ctx context.Context, cmd *cli.Command) (*catalog.Client, func(), error) {
	conf, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}

	if v := cmd.String("upstream"); v != "" {
		conf.Upstream.BaseURL = v
	}
	switch {
	case cmd.Bool("no-cache"):
		conf.Cache.Driver = "none"
	case cmd.String("store") != "":
		conf.Cache.Driver = cmd.String("store")
	case conf.Cache.Driver == "memory":
		conf.Cache.Driver = "file"
	}
	if v := cmd.String("cache-dir"); v != "" {
		conf.Cache.Dir = v
	}
	if d := cmd.Duration("ttl"); d > 0 {
		conf.Cache.TTL = d.String()
	}

	return catalog.Open(ctx, conf)
}

func coursesCommand() *cli.Command {
	return &cli.Command{
		Name:  "courses",
		Usage: "list one page of courses",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Value: catalog.DefaultPage},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: cfg.Int("CATALOG_PAGE_SIZE", catalog.DefaultLimit)},
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "title search term"},
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, closeStore, err := openClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			courses, err := client.ListCourses(ctx, catalog.ListQuery{
				Page:     int(cmd.Int("page")),
				Limit:    int(cmd.Int("limit")),
				Search:   cmd.String("search"),
				Category: cmd.String("category"),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.Root().Writer, courses)
		},
	}
}

func courseCommand() *cli.Command {
	return &cli.Command{
		Name:      "course",
		Usage:     "show a single course",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "summary", Usage: "print a short text summary instead of JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := strings.TrimSpace(cmd.Args().First())
			if id == "" {
				return catalog.ErrInvalidID
			}

			client, closeStore, err := openClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			course, err := client.GetCourse(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.Root().Writer
			if !cmd.Bool("summary") {
				return printJSON(out, course)
			}
			fmt.Fprintf(out, "%s (%s)\n", course.Title, course.Category)
			fmt.Fprintf(out, "teacher: %s\n", course.Teacher)
			fmt.Fprintf(out, "lessons: %d, videos: %d, total: %s\n",
				len(course.Lessons), course.TotalVideos(), catalog.FormatDuration(course.TotalMinutes()))
			return nil
		},
	}
}

func categoriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "categories",
		Usage: "list distinct course categories",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, closeStore, err := openClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			cats, err := client.Categories(ctx)
			if err != nil {
				return err
			}
			out := cmd.Root().Writer
			for _, c := range cats {
				fmt.Fprintln(out, c)
			}
			return nil
		},
	}
}

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "inspect and maintain the response cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "count entries and bytes",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, closeStore, err := openClient(ctx, cmd)
					if err != nil {
						return err
					}
					defer closeStore()

					st := client.CacheStats(ctx)
					fmt.Fprintf(cmd.Root().Writer, "entries: %d (expired %d), size: %s\n",
						st.Entries, st.Expired, humanize.Bytes(uint64(st.TotalSize)))
					return nil
				},
			},
			{
				Name:  "sweep",
				Usage: "remove expired and unreadable entries",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, closeStore, err := openClient(ctx, cmd)
					if err != nil {
						return err
					}
					defer closeStore()

					n := client.SweepExpired(ctx)
					fmt.Fprintf(cmd.Root().Writer, "removed %d expired entries\n", n)
					return nil
				},
			},
			{
				Name:  "clear",
				Usage: "remove every cached response, or one course with --course",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "course", Usage: "only drop this course ID"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, closeStore, err := openClient(ctx, cmd)
					if err != nil {
						return err
					}
					defer closeStore()

					out := cmd.Root().Writer
					if id := cmd.String("course"); id != "" {
						client.ClearCourse(ctx, id)
						fmt.Fprintf(out, "cleared course %s\n", id)
						return nil
					}
					n := client.ClearAll(ctx)
					fmt.Fprintf(out, "cleared %d entries\n", n)
					return nil
				},
			},
		},
	}
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
