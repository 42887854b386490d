package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/imgdl/internal/config"
	"github.com/tanq16/imgdl/internal/fetch"
	"github.com/tanq16/imgdl/internal/imaging"
	"github.com/tanq16/imgdl/internal/output"
	"github.com/tanq16/imgdl/internal/scheduler"
	"github.com/tanq16/imgdl/internal/utils"
	"golang.org/x/time/rate"
)

var ImgdlVersion = "dev"

func newRootCmd() *cobra.Command {
	var explicitName string
	var fromClipboard bool

	rootCmd := &cobra.Command{
		Use:           "imgdl [URL]",
		Short:         "imgdl downloads images over HTTP(S) and S3, validates and converts them",
		Version:       ImgdlVersion,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := singleURL(args, fromClipboard)
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			req := utils.NewRequest(link, explicitName, s.cfg.Format, s.cfg.Output)
			s.manager.StartDisplay()
			outcome, err := s.engine.Download(cmd.Context(), req)
			s.manager.StopDisplay()
			if err != nil {
				return err
			}
			if !outcome.Succeeded {
				return errFailedOperations
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP(config.OptOutput, "o", "", "Directory to save images in (default current directory)")
	flags.IntP(config.OptRetries, "r", utils.DefaultRetries, "Maximum attempts per URL")
	flags.IntP(config.OptWorkers, "w", utils.DefaultWorkers, "Number of URLs to download in parallel")
	flags.DurationP(config.OptTimeout, "t", utils.DefaultTimeout, "Per-attempt timeout (eg. 5s, 1m)")
	flags.DurationP(config.OptKeepAliveTimeout, "k", utils.DefaultKATimeout, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	flags.StringP(config.OptUserAgent, "a", utils.ToolUserAgent, "User agent (\"randomize\" picks a browser user agent)")
	flags.StringP(config.OptProxy, "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	flags.String(config.OptProxyUsername, "", "Proxy username (if not provided in proxy URL)")
	flags.String(config.OptProxyPassword, "", "Proxy password (if not provided in proxy URL)")
	flags.StringArrayP(config.OptHeader, "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	flags.StringP(config.OptFormat, "f", "", "Convert images to this format (jpg, jpeg, png, gif, bmp)")
	flags.Bool(config.OptPreview, false, "Open each image in the system viewer after download")
	flags.Duration(config.OptBackoff, 0, "Linear wait between attempts (eg. 500ms)")
	flags.Float64(config.OptRate, 0, "Maximum attempts per second across all workers (0 = unlimited)")
	flags.String(config.OptS3Profile, "", "AWS profile for s3:// URLs")
	flags.String(config.OptLogFile, utils.LogFile, "Append-only log file")
	flags.Bool(config.OptDebug, false, "Enable debug logging")
	flags.String(config.OptConfig, "", "YAML config file")

	rootCmd.Flags().StringVarP(&explicitName, "name", "n", "", "File name to save the image as")
	rootCmd.Flags().BoolVarP(&fromClipboard, "clipboard", "c", false, "Read the URL from the system clipboard")

	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newCleanCmd())
	return rootCmd
}

var errFailedOperations = errors.New("encountered failed operation(s)")

func singleURL(args []string, fromClipboard bool) (string, error) {
	switch {
	case len(args) == 1 && fromClipboard:
		return "", utils.NewConfigError("arguments", errors.New("cannot specify a URL argument and --clipboard together, choose one"))
	case len(args) == 1:
		return args[0], nil
	case fromClipboard:
		text, err := utils.ReadClipboard()
		if err != nil {
			return "", utils.NewConfigError("clipboard", err)
		}
		return text, nil
	}
	return "", utils.NewConfigError("arguments", errors.New("no URL provided, pass one or use --clipboard or the batch command"))
}

// session holds everything a command needs to run downloads.
type session struct {
	cfg       config.Config
	engine    *scheduler.Engine
	manager   *output.Manager
	logCloser io.Closer
}

func newSession(cmd *cobra.Command) (*session, error) {
	v, err := config.New(cmd.Flags())
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logCloser, err := utils.InitLogger(cfg.Debug, cfg.LogFile)
	if err != nil {
		return nil, err
	}
	if err := scheduler.EnsureSaveDir(cfg.Output); err != nil {
		logCloser.Close()
		return nil, err
	}
	client, err := utils.NewImgHTTPClient(cfg.HTTP)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	router := fetch.NewRouter(fetch.NewHTTPFetcher(client), fetch.NewS3Fetcher(cfg.S3Profile))
	manager := output.NewManager()
	reporter := output.Multi{output.NewLogReporter(utils.GetLogger("reporter")), manager}
	engine := scheduler.NewEngine(router, fetch.RetryOptions{Policy: cfg.RetryPolicy(), Limiter: limiter}, imaging.NewProcessor(cfg.Preview), reporter)

	log.Debug().Str("op", "cmd/root").Str("output", cfg.Output).Int("retries", cfg.Retries).Int("workers", cfg.Workers).Msg("Configuration loaded")
	return &session{cfg: cfg, engine: engine, manager: manager, logCloser: logCloser}, nil
}

func (s *session) Close() {
	s.logCloser.Close()
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, errFailedOperations) {
			fmt.Println()
			output.PrintError("Encountered failed operation(s)")
		} else {
			output.PrintError(fmt.Sprintf("Error: %v", err))
		}
		stop()
		os.Exit(1)
	}
}
