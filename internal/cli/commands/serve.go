package commands

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/conduit-sdk/internal/fakeapi"
)

var defaultCollections = []string{
	"/customers=Customer",
	"/customers/{customerId}/orders=Order",
}

type serveOptions struct {
	addr        string
	collections []string
	apiKey      string
	jwtSecret   string
	seedPath    string
}

// seedResource is one entry of a seed file
type seedResource struct {
	Scope         string         `json:"scope"`
	Type          string         `json:"type"`
	ID            string         `json:"id"`
	Attributes    map[string]any `json:"attributes"`
	Relationships map[string]any `json:"relationships"`
}

// NewServeFakeCommand creates the serve-fake command
func NewServeFakeCommand(opts *globalOptions) *cobra.Command {
	so := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve-fake",
		Short: "Run an in-memory JSON:API server",
		Long: `Run an in-memory JSON:API server for local development.

Each --collection maps a path, which may hold {param} placeholders, to a
resource type. Resources can be preloaded from a JSON seed file holding an
array of {"scope", "type", "id", "attributes", "relationships"} objects.`,
		Args: cobra.NoArgs,
		RunE: runWithSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			if so.addr == "" {
				so.addr = s.settings.Serve.Addr
			}
			if so.jwtSecret == "" {
				so.jwtSecret = s.settings.Serve.JWTSecret
			}

			srv, err := so.build(s)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", so.addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", so.addr, err)
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			titleColor.Fprint(out, "Fake API: ")
			fmt.Fprintf(out, "http://%s\n", ln.Addr())
			for _, coll := range srv.Collections() {
				fmt.Fprintf(out, "  %s -> %s\n", coll.Path, coll.Type)
			}
			if tokens := srv.Tokens(); tokens != nil {
				token, err := tokens.Issue("conduit-sdk")
				if err != nil {
					ln.Close()
					return err
				}
				titleColor.Fprint(out, "Bearer token: ")
				fmt.Fprintln(out, token)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Serve(ctx, ln)
		}),
	}

	cmd.Flags().StringVar(&so.addr, "addr", "", "listen address (default from serve.addr)")
	cmd.Flags().StringArrayVar(&so.collections, "collection", defaultCollections, "collection as path=Type (repeatable)")
	cmd.Flags().StringVar(&so.apiKey, "require-api-key", "", "reject requests without this x-api-key")
	cmd.Flags().StringVar(&so.jwtSecret, "jwt-secret", "", "require HS256 bearer tokens signed with this secret")
	cmd.Flags().StringVar(&so.seedPath, "seed", "", "JSON file of resources to preload")
	return cmd
}

func (so *serveOptions) build(s *session) (*fakeapi.Server, error) {
	opts := []fakeapi.Option{fakeapi.WithLogger(s.logger)}
	for _, raw := range so.collections {
		path, typeName, ok := strings.Cut(raw, "=")
		if !ok || path == "" || typeName == "" {
			return nil, fmt.Errorf("invalid collection %q: expected path=Type", raw)
		}
		opts = append(opts, fakeapi.WithCollection(path, typeName))
	}
	if so.apiKey != "" {
		opts = append(opts, fakeapi.WithAPIKey(so.apiKey))
	}
	if so.jwtSecret != "" {
		opts = append(opts, fakeapi.WithJWTSecret(so.jwtSecret))
	}

	srv := fakeapi.New(opts...)
	if so.seedPath != "" {
		if err := seed(srv, so.seedPath); err != nil {
			return nil, err
		}
	}
	return srv, nil
}

func seed(srv *fakeapi.Server, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var items []seedResource
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	for _, item := range items {
		if err := srv.Seed(item.Scope, item.Type, item.ID, item.Attributes, item.Relationships); err != nil {
			return err
		}
	}
	return nil
}
