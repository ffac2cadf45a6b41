package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/sllt/sqlstmt/pkg/sqlstmt"
	stmtcli "github.com/sllt/sqlstmt/pkg/sqlstmt/cli"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/logging"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/render"
)

func main() {
	app := &cli.Command{
		Name:    "sqlstmt",
		Usage:   "Generate parameterized SQL statements for MySQL and SQLite",
		Version: CLIVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dialect",
				Aliases: []string{"d"},
				Usage:   "SQL dialect: mysql or sqlite",
				Value:   "sqlite",
				Sources: cli.EnvVars("SQLSTMT_DIALECT"),
			},
			&cli.StringSliceFlag{
				Name:    "pk",
				Usage:   "primary key as table:column, repeatable",
				Sources: cli.EnvVars("SQLSTMT_PRIMARY_KEYS"),
			},
			&cli.BoolFlag{
				Name:  "expand",
				Usage: "inline bound values as SQL literals",
			},
			&cli.BoolFlag{
				Name:  "bind-like",
				Usage: "bind LIKE patterns instead of inlining them",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level of the statement builder",
				Value: "ERROR",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "render",
				Usage:     "Render one request read from a JSON or YAML file, or stdin",
				Arguments: []cli.Argument{&cli.StringArg{Name: "file"}},
				Flags:     []cli.Flag{formatFlag()},
				Action: func(_ context.Context, cmd *cli.Command) error {
					r, doc, err := prepare(cmd)
					if err != nil {
						return err
					}

					result, err := stmtcli.Render(r, doc, cmd.String("format"))
					if err != nil {
						return err
					}

					fmt.Println(result)

					return nil
				},
			},
			{
				Name:      "batch",
				Usage:     "Render a list of requests concurrently",
				Arguments: []cli.Argument{&cli.StringArg{Name: "file"}},
				Flags: []cli.Flag{
					formatFlag(),
					&cli.IntFlag{
						Name:  "workers",
						Usage: "number of requests rendered at once",
						Value: 4,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					r, doc, err := prepare(cmd)
					if err != nil {
						return err
					}

					result, err := stmtcli.Batch(ctx, r, doc, int(cmd.Int("workers")), cmd.String("format"))
					if result != "" {
						fmt.Println(result)
					}

					return err
				},
			},
			{
				Name:      "ddl",
				Usage:     "Render CREATE TABLE statements from table definitions",
				Arguments: []cli.Argument{&cli.StringArg{Name: "file"}},
				Action: func(_ context.Context, cmd *cli.Command) error {
					r, doc, err := prepare(cmd)
					if err != nil {
						return err
					}

					result, err := stmtcli.DDL(r.Builder(), doc)
					if err != nil {
						return err
					}

					fmt.Println(result)

					return nil
				},
			},
			{
				Name:  "serve",
				Usage: "Serve statement rendering over HTTP, configured from ./configs",
				Action: func(context.Context, *cli.Command) error {
					sqlstmt.New().Run()
					return nil
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "output format: json, yaml or sql",
		Value:   stmtcli.FormatJSON,
	}
}

// prepare builds the renderer from the global flags and reads the input document.
func prepare(cmd *cli.Command) (*render.Renderer, []byte, error) {
	logger := logging.NewLogger(logging.GetLevelFromString(cmd.String("log-level")))

	b, err := stmtcli.NewBuilder(stmtcli.BuilderOptions{
		Dialect:     cmd.String("dialect"),
		PrimaryKeys: cmd.StringSlice("pk"),
		Expand:      cmd.Bool("expand"),
		BindLike:    cmd.Bool("bind-like"),
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, err
	}

	doc, err := stmtcli.ReadInput(cmd.StringArg("file"), os.Stdin)
	if err != nil {
		return nil, nil, err
	}

	return render.New(b, logger), doc, nil
}
