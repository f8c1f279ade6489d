package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/conduit-sdk/internal/config"
	"github.com/conduit-lang/conduit-sdk/internal/logging"
	"github.com/conduit-lang/conduit-sdk/pkg/resource"
	"github.com/conduit-lang/conduit-sdk/pkg/transport"
)

// globalOptions holds the persistent flags
type globalOptions struct {
	configPath  string
	host        string
	apiKey      string
	accessToken string
	logLevel    string
	timeout     time.Duration
	headers     []string
	noColor     bool
}

// session is the configuration shared by one command invocation
type session struct {
	settings *config.Settings
	logger   *zap.Logger
	config   *resource.Configuration
	client   transport.Client
	headers  map[string]string
}

// newSession loads settings, applies flag overrides and builds the logger,
// resource configuration and HTTP client
func newSession(opts *globalOptions) (*session, error) {
	settings, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.host != "" {
		settings.Host = opts.host
	}
	if opts.apiKey != "" {
		settings.APIKey = opts.apiKey
	}
	if opts.accessToken != "" {
		settings.AccessToken = opts.accessToken
	}
	if opts.logLevel != "" {
		settings.LogLevel = opts.logLevel
	}
	if opts.timeout > 0 {
		settings.Timeout = opts.timeout
	}
	if err := config.Validate(settings); err != nil {
		return nil, err
	}

	headers, err := parsePairs(opts.headers, "header")
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(settings.LogLevel)
	if err != nil {
		return nil, err
	}

	return &session{
		settings: settings,
		logger:   logger,
		config: resource.NewConfiguration(
			resource.WithSettings(settings),
			resource.WithLogger(logger),
		),
		client: transport.NewHTTPClient(
			transport.WithTimeout(settings.Timeout),
			transport.WithLogger(logger),
		),
		headers: headers,
	}, nil
}

// container builds a container for path; typeName only matters for new
// resources since decoded resources carry their own type
func (s *session) container(path, typeName string) *resource.Container {
	opts := []resource.ContainerOption{
		resource.WithClient(s.client),
		resource.WithConfiguration(s.config),
	}
	for name, v := range s.headers {
		opts = append(opts, resource.WithHeader(name, v))
	}
	return resource.NewContainer(resource.NewBasicSchema(typeName), path, opts...)
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// parsePairs splits name=value arguments
func parsePairs(items []string, what string) (map[string]string, error) {
	out := make(map[string]string, len(items))
	for _, item := range items {
		name, v, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid %s %q: expected name=value", what, item)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runWithSession(opts *globalOptions, fn func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := newSession(opts)
		if err != nil {
			return err
		}
		defer s.close()
		return fn(cmd, args, s)
	}
}
