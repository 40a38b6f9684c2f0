package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quantulabs/openrep/pkg/contentstore"
	"github.com/quantulabs/openrep/pkg/indexer"
	"github.com/quantulabs/openrep/pkg/program"
	"github.com/quantulabs/openrep/pkg/sdk"
)

// version is overridden at release time via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile     string
	rpcURL      string
	keypairPath string
	indexerURL  string
	storeURL    string
	verbose     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "openrep",
	Short: "OpenRep registry CLI",
	Long: `openrep is the command-line interface for the OpenRep reputation
protocol. It resolves agent identifiers, inspects agent records and their
metadata extensions, and — given a keypair — registers agents and submits
feedback and validation outcomes.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.openrep")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("openrep")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if rpcURL == "" {
			rpcURL = viper.GetString("rpc_url")
		}
		if rpcURL == "" {
			rpcURL = "https://api.devnet.solana.com"
		}
		if keypairPath == "" {
			keypairPath = viper.GetString("keypair")
		}
		if indexerURL == "" {
			indexerURL = viper.GetString("indexer_url")
		}
		if storeURL == "" {
			storeURL = viper.GetString("content_store_url")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.openrep/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc-url", "", "Solana RPC endpoint (default https://api.devnet.solana.com)")
	rootCmd.PersistentFlags().StringVar(&keypairPath, "keypair", "", "path to a solana-keygen keypair file (enables writes)")
	rootCmd.PersistentFlags().StringVar(&indexerURL, "indexer", "", "OpenRep indexer base URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(validationCmd)
	rootCmd.AddCommand(reputationCmd)
	rootCmd.AddCommand(versionCmd)
}

// newSDKClient builds the SDK client from the persistent flags. writes
// indicates whether the invoking command needs signing authority.
func newSDKClient(writes bool) (*sdk.Client, error) {
	logger := zap.NewNop()
	if verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}

	opts := []sdk.Option{sdk.WithLogger(logger)}
	if keypairPath != "" {
		opts = append(opts, sdk.WithKeypairFile(keypairPath))
	} else if writes {
		return nil, fmt.Errorf("this command submits a transaction; provide --keypair or set keypair in the config")
	}
	if storeURL != "" {
		opts = append(opts, sdk.WithContentStore(contentstore.NewHTTPStore(storeURL)))
	}
	return sdk.New(rpcURL, opts...)
}

func parseAgentID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid agent identifier %q: %w", arg, err)
	}
	return id, nil
}

// ── resolve ─────────────────────────────────────────────────────────────

var resolveCmd = &cobra.Command{
	Use:   "resolve <agent-id>",
	Short: "Resolve an agent identifier to its mint and record address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAgentID(args[0])
		if err != nil {
			return err
		}
		c, err := newSDKClient(false)
		if err != nil {
			return err
		}

		mint, err := c.Resolve(context.Background(), id)
		if err != nil {
			return err
		}
		agent, _, err := program.AgentAddress(mint)
		if err != nil {
			return err
		}
		fmt.Printf("Agent ID: %d\n", id)
		fmt.Printf("Mint:     %s\n", mint)
		fmt.Printf("Record:   %s\n", agent)
		return nil
	},
}

// ── agent ───────────────────────────────────────────────────────────────

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Inspect and manage agent records",
}

var agentShowFormat string

var agentShowCmd = &cobra.Command{
	Use:   "show <agent-id>",
	Short: "Show an agent's record with all metadata merged",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAgentID(args[0])
		if err != nil {
			return err
		}
		c, err := newSDKClient(false)
		if err != nil {
			return err
		}

		view, err := c.LoadAgent(context.Background(), id)
		if err != nil {
			return err
		}
		if view == nil {
			return fmt.Errorf("agent %d is not registered", id)
		}

		if agentShowFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}

		fmt.Printf("Agent ID:    %d\n", view.AgentID)
		fmt.Printf("Record:      %s\n", view.Address)
		fmt.Printf("Mint:        %s\n", view.Mint)
		fmt.Printf("Owner:       %s\n", view.Owner)
		fmt.Printf("Descriptor:  %s\n", view.DescriptorURI)
		fmt.Printf("Extensions:  %d\n", view.ExtensionCount)
		if len(view.Metadata) > 0 {
			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tVALUE")
			for _, e := range view.Metadata {
				fmt.Fprintf(w, "%s\t%s\n", e.Key, e.Value)
			}
			w.Flush()
		}
		return nil
	},
}

var (
	registerDescriptorURI  string
	registerDescriptorFile string
	registerMetadata       map[string]string
)

var agentRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new agent identity",
	Long: `Register creates a new agent record on chain. The registry assigns the
next agent identifier.

Provide the descriptor either as a URI (--descriptor-uri) or as a local
JSON file (--descriptor-file), which is published to the configured content
store first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newSDKClient(true)
		if err != nil {
			return err
		}
		ctx := context.Background()

		descriptorURI := registerDescriptorURI
		if registerDescriptorFile != "" {
			payload, err := os.ReadFile(registerDescriptorFile)
			if err != nil {
				return fmt.Errorf("read descriptor file: %w", err)
			}
			descriptorURI, err = c.PublishDescriptor(ctx, payload, "application/json")
			if err != nil {
				return err
			}
			fmt.Printf("Descriptor published: %s\n", descriptorURI)
		}

		var metadata []program.MetadataEntry
		for k, v := range registerMetadata {
			metadata = append(metadata, program.MetadataEntry{Key: k, Value: []byte(v)})
		}

		res, err := c.RegisterAgent(ctx, sdk.RegisterAgentParams{
			DescriptorURI: descriptorURI,
			Metadata:      metadata,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Agent ID:  %d\n", res.AgentID)
		fmt.Printf("Mint:      %s\n", res.Mint)
		fmt.Printf("Record:    %s\n", res.Agent)
		fmt.Printf("Signature: %s\n", res.Signature)
		return nil
	},
}

var (
	setDescriptorURI  string
	setDescriptorFile string
	setMetadata       map[string]string
)

var agentSetMetadataCmd = &cobra.Command{
	Use:   "set-metadata <agent-id>",
	Short: "Replace an agent's descriptor and inline metadata",
	Long: `Set-metadata replaces the agent record's descriptor URI and its inline
metadata entries in one transaction. The signer must be the agent's owner.

Provide the descriptor either as a URI (--descriptor-uri) or as a local
JSON file (--descriptor-file), which is published to the configured content
store first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAgentID(args[0])
		if err != nil {
			return err
		}
		c, err := newSDKClient(true)
		if err != nil {
			return err
		}
		ctx := context.Background()

		descriptorURI := setDescriptorURI
		if setDescriptorFile != "" {
			payload, err := os.ReadFile(setDescriptorFile)
			if err != nil {
				return fmt.Errorf("read descriptor file: %w", err)
			}
			descriptorURI, err = c.PublishDescriptor(ctx, payload, "application/json")
			if err != nil {
				return err
			}
			fmt.Printf("Descriptor published: %s\n", descriptorURI)
		}

		var metadata []program.MetadataEntry
		for k, v := range setMetadata {
			metadata = append(metadata, program.MetadataEntry{Key: k, Value: []byte(v)})
		}

		sig, err := c.UpdateAgentMetadata(ctx, id, descriptorURI, metadata)
		if err != nil {
			return err
		}
		fmt.Printf("Signature: %s\n", sig)
		return nil
	},
}

var (
	extensionKey   string
	extensionValue string
)

var agentExtendCmd = &cobra.Command{
	Use:   "extend <agent-id>",
	Short: "Append a metadata extension to an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAgentID(args[0])
		if err != nil {
			return err
		}
		if extensionKey == "" {
			return fmt.Errorf("--key is required")
		}
		c, err := newSDKClient(true)
		if err != nil {
			return err
		}

		sig, err := c.AddMetadataExtension(context.Background(), id, extensionKey, []byte(extensionValue))
		if err != nil {
			return err
		}
		fmt.Printf("Signature: %s\n", sig)
		return nil
	},
}

func init() {
	agentShowCmd.Flags().StringVar(&agentShowFormat, "format", "text", "Output format: text or json")
	agentRegisterCmd.Flags().StringVar(&registerDescriptorURI, "descriptor-uri", "", "URI of an already published descriptor")
	agentRegisterCmd.Flags().StringVar(&registerDescriptorFile, "descriptor-file", "", "local descriptor JSON to publish via the content store")
	agentRegisterCmd.Flags().StringToStringVar(&registerMetadata, "metadata", nil, "inline metadata entries (key=value, repeatable)")
	agentRegisterCmd.Flags().StringVar(&storeURL, "content-store", "", "content store base URL (for --descriptor-file)")
	agentSetMetadataCmd.Flags().StringVar(&setDescriptorURI, "descriptor-uri", "", "URI of an already published descriptor")
	agentSetMetadataCmd.Flags().StringVar(&setDescriptorFile, "descriptor-file", "", "local descriptor JSON to publish via the content store")
	agentSetMetadataCmd.Flags().StringToStringVar(&setMetadata, "metadata", nil, "inline metadata entries (key=value, repeatable)")
	agentExtendCmd.Flags().StringVar(&extensionKey, "key", "", "extension metadata key")
	agentExtendCmd.Flags().StringVar(&extensionValue, "value", "", "extension metadata value")

	agentCmd.AddCommand(agentShowCmd)
	agentCmd.AddCommand(agentRegisterCmd)
	agentCmd.AddCommand(agentSetMetadataCmd)
	agentCmd.AddCommand(agentExtendCmd)
}

// ── feedback ────────────────────────────────────────────────────────────

var (
	feedbackScore uint8
	feedbackTag   string
	feedbackURI   string
	feedbackNonce uint64
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <agent-id>",
	Short: "Submit peer feedback for an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAgentID(args[0])
		if err != nil {
			return err
		}
		c, err := newSDKClient(true)
		if err != nil {
			return err
		}

		sig, err := c.SubmitFeedback(context.Background(), sdk.FeedbackParams{
			AgentID: id,
			Score:   feedbackScore,
			Tag:     feedbackTag,
			URI:     feedbackURI,
			Nonce:   feedbackNonce,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Signature: %s\n", sig)
		return nil
	},
}

func init() {
	feedbackCmd.Flags().Uint8Var(&feedbackScore, "score", 0, "score 0-100")
	feedbackCmd.Flags().StringVar(&feedbackTag, "tag", "", "skill or category tag")
	feedbackCmd.Flags().StringVar(&feedbackURI, "uri", "", "URI of an off-chain feedback document")
	feedbackCmd.Flags().Uint64Var(&feedbackNonce, "nonce", 0, "distinguishes repeat feedback from the same client")
}

// ── validation ──────────────────────────────────────────────────────────

var (
	validationResponse uint8
	validationURI      string
)

var validationCmd = &cobra.Command{
	Use:   "validation <agent-id>",
	Short: "Submit a validation outcome for an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAgentID(args[0])
		if err != nil {
			return err
		}
		c, err := newSDKClient(true)
		if err != nil {
			return err
		}

		sig, err := c.SubmitValidation(context.Background(), sdk.ValidationParams{
			AgentID:  id,
			Response: validationResponse,
			URI:      validationURI,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Signature: %s\n", sig)
		return nil
	},
}

func init() {
	validationCmd.Flags().Uint8Var(&validationResponse, "response", 0, "validation response code")
	validationCmd.Flags().StringVar(&validationURI, "uri", "", "URI of an off-chain validation report")
}

// ── reputation ──────────────────────────────────────────────────────────

var reputationCmd = &cobra.Command{
	Use:   "reputation <agent-id>",
	Short: "Show an agent's aggregate reputation from the indexer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAgentID(args[0])
		if err != nil {
			return err
		}
		if indexerURL == "" {
			return fmt.Errorf("no indexer configured; pass --indexer or set indexer_url in the config")
		}

		idx := indexer.New(indexerURL)
		summary, err := idx.ReputationSummary(context.Background(), id)
		if err != nil {
			return err
		}
		fmt.Printf("Agent ID:     %d\n", summary.AgentID)
		fmt.Printf("Feedback:     %d entries, average score %.1f\n", summary.FeedbackCount, summary.AverageScore)
		fmt.Printf("Validations:  %d ok / %d total\n", summary.ValidationsOK, summary.ValidationCount)
		if !summary.LastActivity.IsZero() {
			fmt.Printf("Last active:  %s\n", summary.LastActivity.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	},
}

// ── version ─────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the openrep CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("openrep", version)
	},
}
