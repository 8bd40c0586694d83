// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func playerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "player",
		Aliases: []string{"p"},
		Usage:   "Player ID (defaults to the logged in player)",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration instead",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles player sign-in and the stored credential
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the player's Spotify credential",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with Spotify in the browser",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser redirect",
						Value: defaultLoginTimeout,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Remove every stored credential",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the stored credential and player",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the refresh token for a new access token",
				Action: r.AuthRefresh,
			},
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the token exchange endpoint that holds the client secret",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.host:server.port)",
			},
		},
		Action: r.Serve,
	}
}

// questionsCommand handles the question catalog
func questionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "questions",
		Aliases: []string{"q"},
		Usage:   "List and add questions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List questions in display order",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Include inactive questions",
					},
					jsonFlag(),
				},
				Action: r.QuestionsList,
			},
			{
				Name:  "add",
				Usage: "Add a question",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "text"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "order",
						Usage: "Display order (defaults to the end of the list)",
					},
					&cli.BoolFlag{
						Name:  "inactive",
						Usage: "Create the question hidden",
					},
				},
				Action: r.QuestionsAdd,
			},
		},
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the Spotify catalog for a track",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of results",
				Value:   10,
			},
			jsonFlag(),
		},
		Action: r.Search,
	}
}

// answersCommand handles the player's answer slots
func answersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "answers",
		Aliases: []string{"a"},
		Usage:   "Pick, change and remove answers",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Show every slot with its question and track",
				Flags:  []cli.Flag{playerFlag(), jsonFlag()},
				Action: r.AnswersList,
			},
			{
				Name:  "select",
				Usage: "Answer a slot with a track",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "slot"},
					&cli.StringArg{Name: "track"},
				},
				Flags: []cli.Flag{
					playerFlag(),
					&cli.BoolFlag{
						Name:  "override",
						Usage: "Skip the release date check",
					},
				},
				Action: r.AnswersSelect,
			},
			{
				Name:  "change",
				Usage: "Assign a different question to a slot",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "slot"},
					&cli.StringArg{Name: "question"},
				},
				Flags:  []cli.Flag{playerFlag()},
				Action: r.AnswersChange,
			},
			{
				Name:  "remove",
				Usage: "Remove an extra slot and its answer",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "slot"},
				},
				Flags:  []cli.Flag{playerFlag()},
				Action: r.AnswersRemove,
			},
			{
				Name:  "add-slot",
				Usage: "Add an extra slot, optionally assigning a question and track",
				Flags: []cli.Flag{
					playerFlag(),
					&cli.StringFlag{
						Name:  "question",
						Usage: "Question ID for the new slot",
					},
					&cli.StringFlag{
						Name:  "track",
						Usage: "Track ID to answer with (requires --question)",
					},
					&cli.BoolFlag{
						Name:  "override",
						Usage: "Skip the release date check",
					},
				},
				Action: r.AnswersAddSlot,
			},
			{
				Name:  "export",
				Usage: "Export answers",
				Flags: []cli.Flag{
					playerFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, markdown, csv or json",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to stdout)",
					},
				},
				Action: r.AnswersExport,
			},
		},
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show whether the player has answered enough questions to play",
		Flags:  []cli.Flag{playerFlag(), jsonFlag()},
		Action: r.Status,
	}
}
