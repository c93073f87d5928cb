package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/deepwiki-chat/backend"
	"github.com/gosuda/deepwiki-chat/chat"
)

type rootOptions struct {
	configPath string
	serverURL  string
	logLevel   string

	cfg *CLIConfig
}

type askOptions struct {
	repoURL       string
	repoType      string
	token         string
	filePath      string
	provider      string
	model         string
	language      string
	transport     string
	excludedDirs  []string
	excludedFiles []string
	includedDirs  []string
	includedFiles []string
	headers       []string
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("[cli] failed to load .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("execute root command")
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "deepwiki-chat",
		Short:         "Ask DeepWiki questions about a repository over WebSocket or HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("parse log level: %w", err)
			}
			zerolog.SetGlobalLevel(level)

			cfg, err := LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if opts.serverURL != "" {
				cfg.ServerURL = opts.serverURL
			}
			opts.cfg = cfg
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.StringVar(&opts.serverURL, "server-url", "", "DeepWiki service base URL (env: SERVER_BASE_URL)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newAskCmd(opts),
		newProjectsCmd(opts),
		newStructureCmd(opts),
		newEndpointCmd(opts),
	)
	return cmd
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about a repository and stream the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := chat.BuildRequest(opts.merge(root.cfg.Ask, strings.Join(args, " ")))
			if err != nil {
				return err
			}
			header, err := parseHeaders(opts.headers)
			if err != nil {
				return err
			}

			transport := root.cfg.Transport
			if opts.transport != "" {
				transport = opts.transport
			}

			out := cmd.OutOrStdout()
			switch transport {
			case transportWS:
				err = askWebSocket(cmd.Context(), req, out, chatOptions(root.cfg, header)...)
			case transportHTTP:
				err = newBackendClient(root.cfg).StreamChatCompletions(cmd.Context(), req, func(chunk string) error {
					_, werr := io.WriteString(out, chunk)
					return werr
				})
			default:
				return fmt.Errorf("unknown transport %q", transport)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.repoURL, "repo", "", "repository URL")
	flags.StringVar(&opts.repoType, "repo-type", "", "repository type: github, gitlab or bitbucket")
	flags.StringVar(&opts.token, "token", "", "access token for private repositories")
	flags.StringVar(&opts.filePath, "file", "", "focus the question on a file path")
	flags.StringVar(&opts.provider, "provider", "", "model provider, e.g. google, openai, openrouter, ollama")
	flags.StringVar(&opts.model, "model", "", "model name")
	flags.StringVar(&opts.language, "language", "", "answer language, e.g. en, zh, ja")
	flags.StringVar(&opts.transport, "transport", "", "ws or http (default from config)")
	flags.StringSliceVar(&opts.excludedDirs, "exclude-dir", nil, "directories to exclude")
	flags.StringSliceVar(&opts.excludedFiles, "exclude-file", nil, "files to exclude")
	flags.StringSliceVar(&opts.includedDirs, "include-dir", nil, "only include these directories")
	flags.StringSliceVar(&opts.includedFiles, "include-file", nil, "only include these files")
	flags.StringArrayVar(&opts.headers, "header", nil, `extra WebSocket handshake header as "Key: Value" (repeatable)`)
	_ = cmd.MarkFlagRequired("repo")

	return cmd
}

// merge combines flags with configured defaults; flags win.
func (o *askOptions) merge(d AskDefaults, question string) chat.AskOptions {
	pick := func(flag, def string) string {
		if flag != "" {
			return flag
		}
		return def
	}
	pickList := func(flag, def []string) []string {
		if len(flag) > 0 {
			return flag
		}
		return def
	}

	return chat.AskOptions{
		RepoURL:       o.repoURL,
		RepoType:      pick(o.repoType, d.RepoType),
		Token:         o.token,
		FilePath:      o.filePath,
		Provider:      pick(o.provider, d.Provider),
		Model:         pick(o.model, d.Model),
		Language:      pick(o.language, d.Language),
		Messages:      chat.Question(question),
		ExcludedDirs:  pickList(o.excludedDirs, d.ExcludedDirs),
		ExcludedFiles: pickList(o.excludedFiles, d.ExcludedFiles),
		IncludedDirs:  pickList(o.includedDirs, d.IncludedDirs),
		IncludedFiles: pickList(o.includedFiles, d.IncludedFiles),
	}
}

func askWebSocket(ctx context.Context, req *chat.ChatCompletionRequest, out io.Writer, opts ...chat.Option) error {
	var firstErr error
	conn := chat.Open(ctx, req, chat.Handlers{
		OnMessage: func(text string) {
			if _, err := io.WriteString(out, text); err != nil && firstErr == nil {
				firstErr = err
			}
		},
		OnError: func(err error) {
			if firstErr == nil {
				firstErr = err
			}
		},
	}, opts...)
	log.Debug().Str("url", conn.URL()).Msg("[cli] asking over websocket")

	<-conn.Done()
	return firstErr
}

func chatOptions(cfg *CLIConfig, header http.Header) []chat.Option {
	opts := []chat.Option{chat.WithDialTimeout(30 * time.Second)}
	if cfg.ServerURL != "" {
		opts = append(opts, chat.WithBaseURL(cfg.ServerURL))
	}
	if len(header) > 0 {
		opts = append(opts, chat.WithHeader(header))
	}
	return opts
}

// parseHeaders turns "Key: Value" flags into a header set.
func parseHeaders(raw []string) (http.Header, error) {
	header := http.Header{}
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Key: Value\"", kv)
		}
		header.Add(key, strings.TrimSpace(value))
	}
	return header, nil
}

func newBackendClient(cfg *CLIConfig) *backend.Client {
	return backend.NewClient(func(c *backend.ClientConfig) {
		if cfg.ServerURL != "" {
			c.BaseURL = cfg.ServerURL
		}
		c.Timeout = cfg.Timeout
	})
}

func newProjectsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List repositories the service has already processed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := newBackendClient(root.cfg).ProcessedProjects(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No processed projects returned from backend.")
				return nil
			}
			for i, p := range projects {
				fmt.Fprintf(out, "%d. %s (%s, %s) - %s\n", i+1, p.Name, p.RepoType, p.Language,
					time.UnixMilli(p.SubmittedAt).UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newStructureCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "structure PATH",
		Short: "Show the file tree and README of a local repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			structure, err := newBackendClient(root.cfg).LocalRepoStructure(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File tree:\n%s\n\n", structure.FileTree)
			if strings.TrimSpace(structure.Readme) == "" {
				fmt.Fprintln(out, "README: (empty)")
				return nil
			}
			fmt.Fprintf(out, "README:\n%s\n", structure.Readme)
			return nil
		},
	}
}

func newEndpointCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoint",
		Short: "Print the chat WebSocket endpoint this client would connect to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := chat.DetectEnvironment()
			endpoint := env.Endpoint()
			if root.cfg.ServerURL != "" {
				endpoint = chat.ResolveEndpoint(env, root.cfg.ServerURL)
			}
			fmt.Fprintln(cmd.OutOrStdout(), endpoint)
			return nil
		},
	}
}
