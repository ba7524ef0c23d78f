package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zen-systems/dialogate/pkg/adapter"
	"github.com/zen-systems/dialogate/pkg/config"
	"github.com/zen-systems/dialogate/pkg/hooks"
	"github.com/zen-systems/dialogate/pkg/invoke"
	"github.com/zen-systems/dialogate/pkg/language"
	"github.com/zen-systems/dialogate/pkg/orchestrator"
	"github.com/zen-systems/dialogate/pkg/pii"
	"github.com/zen-systems/dialogate/pkg/router"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "dialogate",
		Short: "Conversation orchestrator with resilient routing to language backends",
		Long: `Dialogate routes each conversation turn to an intent classifier,
	a QA knowledge base, or a chat fallback, with per-conversation PII
	redaction and retrying HTTP transport underneath.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadWithFile(configFile)
	}
	return config.Load()
}

// buildChatAdapter picks the configured chat provider, or the first one
// with an API key when none is configured explicitly.
func buildChatAdapter(cfg *config.Config) (adapter.Adapter, string, error) {
	provider := cfg.Chat.Provider
	if provider == "" {
		for _, name := range []string{"anthropic", "openai", "google"} {
			if cfg.HasChatProvider(name) {
				provider = name
				break
			}
		}
	}
	if provider == "" {
		return nil, "", fmt.Errorf("no chat provider configured")
	}

	var (
		a   adapter.Adapter
		err error
	)
	switch provider {
	case "anthropic":
		a, err = adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey)
	case "openai":
		a, err = adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey)
	case "google":
		a, err = adapter.NewGoogleAdapter(cfg.GoogleAPIKey)
	default:
		return nil, "", fmt.Errorf("unknown chat provider %q", provider)
	}
	if err != nil {
		return nil, "", err
	}

	model := cfg.Chat.Model
	if model == "" {
		if models := a.Models(); len(models) > 0 {
			model = models[0]
		}
	}
	return a, model, nil
}

type runtime struct {
	cfg      *config.Config
	orch     *orchestrator.Orchestrator
	registry *hooks.Registry
	red      *pii.Redacter
	chat     adapter.Adapter
	model    string
}

func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	routerType, err := router.ParseType(cfg.Router.Type)
	if err != nil {
		return nil, err
	}

	var (
		langClient *language.Client
		red        *pii.Redacter
		detect     orchestrator.LanguageDetector
	)
	if cfg.Language.Endpoint != "" {
		timeout := time.Duration(cfg.Retry.HTTPTimeoutSeconds * float64(time.Second))
		langClient, err = language.NewClient(cfg.Language.Endpoint, cfg.Language.APIKey,
			language.WithRetryPolicy(invoke.RetryPolicy{
				MaxRetries:     cfg.Retry.MaxRetries,
				MaxWaitSeconds: cfg.Retry.MaxWaitSeconds,
			}),
			language.WithInvoker(invoke.NewInvoker(invoke.WithHTTPClient(&http.Client{Timeout: timeout}))),
		)
		if err != nil {
			return nil, err
		}
		detect = langClient
		if cfg.PII.Enabled {
			red = pii.NewRedacter(langClient, cfg.PII.Categories, cfg.PII.ConfidenceThreshold)
		}
	} else if routerType != router.TypeBypass {
		return nil, fmt.Errorf("router type %s requires a language endpoint", routerType)
	}

	chat, model, err := buildChatAdapter(cfg)
	if err != nil {
		return nil, err
	}
	cfg.Chat.Model = model

	route, err := router.New(ctx, cfg, langClient, chat, red)
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(routerType, route, detect,
		orchestrator.ChatFallback(chat, model, red, cfg.Retry.MaxRetries), cfg.DefaultLanguage)
	if err != nil {
		return nil, err
	}

	registry, err := demoHooks()
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, orch: orch, registry: registry, red: red, chat: chat, model: model}, nil
}

func chatCmd() *cobra.Command {
	var verbose bool
	var split bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Reads turns from stdin and routes each one. Intents with a
	registered handler run it; everything else prints the routed answer
	or the chat fallback reply.

	With --split, a message carrying several requests is first broken
	into utterances by the chat model and each one is routed on its own.
	Type "exit" to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := buildRuntime(ctx)
			if err != nil {
				return err
			}

			id := uuid.NewString()
			defer func() {
				if rt.red != nil {
					rt.red.Remove(id)
				}
			}()

			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("> ")
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "exit" || line == "quit" {
					break
				}
				if line != "" {
					utterances := []string{line}
					if split {
						utterances = orchestrator.SplitUtterances(ctx, rt.chat, rt.model, line)
					}
					for _, utterance := range utterances {
						resp, err := rt.orch.Orchestrate(ctx, utterance, id)
						if err != nil {
							fmt.Fprintf(os.Stderr, "error: %v\n", err)
							continue
						}
						if verbose {
							dumpTurn(resp)
						}
						fmt.Println(renderTurn(resp, rt.registry))
					}
				}
				fmt.Print("> ")
			}
			return scanner.Err()
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the full turn envelope to stderr")
	cmd.Flags().BoolVar(&split, "split", false, "split multi-request messages into separate utterances")
	return cmd
}

// renderTurn turns a routing envelope into the line shown to the user.
func renderTurn(resp *orchestrator.Response, registry *hooks.Registry) string {
	switch resp.Route {
	case orchestrator.RouteCLU:
		if r, ok := resp.Result.(*router.Result); ok {
			if registry.Handles(r.Intent) {
				reply, err := registry.Dispatch(r.Intent, r.Entities)
				if err == nil {
					return reply
				}
				fmt.Fprintf(os.Stderr, "hook for %s failed: %v\n", r.Intent, err)
			}
			return fmt.Sprintf("Recognized intent: %s", r.Intent)
		}
	case orchestrator.RouteCQA:
		if r, ok := resp.Result.(*router.Result); ok {
			return r.Answer
		}
	case orchestrator.RouteFallback:
		if answer, ok := resp.Result.(string); ok {
			return answer
		}
	}
	return fmt.Sprintf("%v", resp.Result)
}

func dumpTurn(resp *orchestrator.Response) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode turn: %v\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, string(data))
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show the configured routing setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "router type:\t%s\n", cfg.Router.Type)
			fmt.Fprintf(w, "default language:\t%s\n", cfg.DefaultLanguage)
			fmt.Fprintf(w, "pii redaction:\t%v\n", cfg.PII.Enabled)
			fmt.Fprintln(w)
			fmt.Fprintln(w, "BACKEND\tPROJECT\tDEPLOYMENT\tTHRESHOLD")
			for _, row := range []struct {
				name string
				p    config.ProjectConfig
			}{
				{"clu", cfg.Router.CLU},
				{"cqa", cfg.Router.CQA},
				{"orchestration", cfg.Router.Orchestration},
			} {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n",
					row.name, row.p.ProjectName, row.p.DeploymentName, row.p.ConfidenceThreshold)
			}
			return w.Flush()
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			routerType, err := router.ParseType(cfg.Router.Type)
			if err != nil {
				return err
			}
			if routerType != router.TypeBypass && cfg.Language.Endpoint == "" {
				return fmt.Errorf("router type %s requires a language endpoint", routerType)
			}
			if routerType == router.TypeFunctionCalling || routerType == router.TypeTriageAgent {
				if _, _, err := buildChatAdapter(cfg); err != nil {
					return fmt.Errorf("router type %s: %w", routerType, err)
				}
			}

			if cfg.Language.Endpoint != "" && cfg.Router.CLU.ProjectName != "" {
				langClient, err := language.NewClient(cfg.Language.Endpoint, cfg.Language.APIKey)
				if err != nil {
					return err
				}
				registry, err := demoHooks()
				if err != nil {
					return err
				}
				if err := validateHooks(cmd.Context(), registry, langClient, cfg.Router.CLU.ProjectName); err != nil {
					return err
				}
			}

			fmt.Println("configuration OK")
			return nil
		},
	}
}

// validateHooks checks the registered handlers against the intents the
// classifier project actually exports, so a renamed intent fails
// validation instead of silently never dispatching.
func validateHooks(ctx context.Context, registry *hooks.Registry, exporter router.ProjectExporter, project string) error {
	intents, err := router.GetCLUIntents(ctx, exporter, project)
	if err != nil {
		return fmt.Errorf("export intents from %s: %w", project, err)
	}
	if err := registry.Validate(intents); err != nil {
		return fmt.Errorf("hook registry: %w", err)
	}
	return nil
}
