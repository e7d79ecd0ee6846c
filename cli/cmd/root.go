package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"southwinds.dev/randpool"
	"southwinds.dev/randpool/audit"
	"southwinds.dev/randpool/persist"
)

var (
	cfgFile     string
	secret      string
	identity    string
	rng         *randpool.RNG
	rngStore    persist.Store
	auditLogger audit.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "randpool",
	Short: "A persisted, encrypted random number generator",
	Long: `A cryptographically seeded random number generator whose state is
persisted to, and restored from, encrypted storage. State blobs are sealed
with ChaCha20-Poly1305 under a key derived from your secret.`,
	PersistentPreRunE: initializeRNG,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if rng != nil {
			return rng.Close()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.randpool.yaml)")
	rootCmd.PersistentFlags().StringVarP(&secret, "secret", "s", "", "sealing secret (or use RANDPOOL_SECRET env var)")
	rootCmd.PersistentFlags().StringVarP(&identity, "identity", "i", "", "identity naming the persisted state blob")
	rootCmd.PersistentFlags().StringP("pool-path", "p", "", "path to state storage")
	rootCmd.PersistentFlags().String("store-type", "", "storage backend type (filesystem, s3)")
	rootCmd.PersistentFlags().Bool("memory-lock", false, "lock process memory to keep key material off swap")

	bindFlagOrPanic("pool.secret", "secret")
	bindFlagOrPanic("pool.identity", "identity")
	bindFlagOrPanic("pool.path", "pool-path")
	bindFlagOrPanic("pool.store_type", "store-type")
	bindFlagOrPanic("pool.memory_lock", "memory-lock")

	// Audit flags
	rootCmd.PersistentFlags().Bool("audit", false, "enable audit logging")
	rootCmd.PersistentFlags().String("audit-type", "", "audit logger type (file, syslog)")
	rootCmd.PersistentFlags().String("audit-file", "", "audit log file path")

	bindFlagOrPanic("audit.enabled", "audit")
	bindFlagOrPanic("audit.type", "audit-type")
	bindFlagOrPanic("audit.options.file_path", "audit-file")

	// S3 flags
	rootCmd.PersistentFlags().String("s3-endpoint", "", "S3 endpoint URL")
	rootCmd.PersistentFlags().String("s3-region", "", "S3 region")
	rootCmd.PersistentFlags().String("s3-bucket", "", "S3 bucket name")
	rootCmd.PersistentFlags().String("s3-prefix", "", "S3 key prefix")
	rootCmd.PersistentFlags().String("s3-access-key", "", "S3 access key ID")
	rootCmd.PersistentFlags().String("s3-secret-key", "", "S3 secret access key")
	rootCmd.PersistentFlags().Bool("s3-use-ssl", true, "Use SSL for S3 connections")

	bindFlagOrPanic("pool.s3.endpoint", "s3-endpoint")
	bindFlagOrPanic("pool.s3.region", "s3-region")
	bindFlagOrPanic("pool.s3.bucket", "s3-bucket")
	bindFlagOrPanic("pool.s3.prefix", "s3-prefix")
	bindFlagOrPanic("pool.s3.access_key_id", "s3-access-key")
	bindFlagOrPanic("pool.s3.secret_access_key", "s3-secret-key")
	bindFlagOrPanic("pool.s3.use_ssl", "s3-use-ssl")
}

func bindFlagOrPanic(configKey, flagName string) {
	if err := viper.BindPFlag(configKey, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flagName, err))
	}
}

func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/randpool")

		viper.SetConfigType("yaml")
		viper.SetConfigName(".randpool")
	}

	viper.SetEnvPrefix("RANDPOOL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
		// Missing config file is fine, defaults and env vars apply
	}
}

func setDefaults() {
	viper.SetDefault("pool.path", ".randpool")
	viper.SetDefault("pool.identity", randpool.DefaultIdentity)
	viper.SetDefault("pool.store_type", "filesystem")
	viper.SetDefault("pool.memory_lock", false)

	viper.SetDefault("pool.s3.region", "us-east-1")
	viper.SetDefault("pool.s3.prefix", "randpool/")
	viper.SetDefault("pool.s3.use_ssl", true)

	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("audit.type", "file")
	viper.SetDefault("audit.options.max_size", 100)
	viper.SetDefault("audit.options.max_backups", 5)
	viper.SetDefault("audit.log_level", "info")
	viper.SetDefault("audit.options.file_path", "audit.log")
}

func initializeRNG(cmd *cobra.Command, args []string) error {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", "__complete", "config":
			return nil
		}
	}

	identity = viper.GetString("pool.identity")

	if viper.GetString("audit.options.file_path") == "audit.log" {
		viper.Set("audit.options.file_path", filepath.Join(viper.GetString("pool.path"), "audit.log"))
	}

	secret = viper.GetString("pool.secret")
	if secret == "" {
		secret = os.Getenv("RANDPOOL_SECRET")
	}
	if secret == "" {
		return fmt.Errorf("secret is required. Use --secret flag or RANDPOOL_SECRET environment variable")
	}

	var err error
	auditLogger, err = createAuditLogger()
	if err != nil {
		return fmt.Errorf("failed to create audit logger: %w", err)
	}

	rngStore, err = createStore(viper.GetString("pool.store_type"))
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	options := randpool.Options{
		Identity:         identity,
		EnvSecretVar:     "RANDPOOL_SECRET",
		EnableMemoryLock: viper.GetBool("pool.memory_lock"),
	}

	rng, err = randpool.New(options, rngStore, auditLogger)
	if err != nil {
		return fmt.Errorf("failed to create rng: %w", err)
	}

	if err = auditLogger.Log("CLI_COMMAND", true, map[string]interface{}{
		"command": cmd.Name(),
		"flags":   sanitizeFlags(cmd),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: audit logging failed: %v\n", err)
	}

	return nil
}

func createAuditLogger() (audit.Logger, error) {
	return audit.NewLogger(&audit.Config{
		Enabled:  viper.GetBool("audit.enabled"),
		Identity: viper.GetString("pool.identity"),
		Type:     audit.ConfigType(viper.GetString("audit.type")),
		Options: map[string]interface{}{
			"file_path":   viper.GetString("audit.options.file_path"),
			"max_size":    viper.GetInt("audit.options.max_size"),
			"max_backups": viper.GetInt("audit.options.max_backups"),
		},
		LogLevel: viper.GetString("audit.log_level"),
	})
}

func createStore(storeType string) (persist.Store, error) {
	switch strings.ToLower(storeType) {
	case "filesystem", "file":
		return persist.NewFileSystemStore(viper.GetString("pool.path"))

	case "s3":
		s3Config := persist.S3Config{
			Endpoint:        viper.GetString("pool.s3.endpoint"),
			AccessKeyID:     viper.GetString("pool.s3.access_key_id"),
			SecretAccessKey: viper.GetString("pool.s3.secret_access_key"),
			Bucket:          viper.GetString("pool.s3.bucket"),
			KeyPrefix:       viper.GetString("pool.s3.prefix"),
			UseSSL:          viper.GetBool("pool.s3.use_ssl"),
			Region:          viper.GetString("pool.s3.region"),
		}

		if err := validateS3Config(s3Config); err != nil {
			return nil, fmt.Errorf("invalid S3 configuration: %w", err)
		}

		return persist.NewS3Store(s3Config)

	default:
		return nil, fmt.Errorf("unsupported store type: %s. Supported types: filesystem, s3", storeType)
	}
}

func validateS3Config(config persist.S3Config) error {
	var missing []string

	if config.Bucket == "" {
		missing = append(missing, "pool.s3.bucket")
	}
	if config.Endpoint == "" {
		missing = append(missing, "pool.s3.endpoint")
	}

	hasAccessKey := config.AccessKeyID != ""
	hasSecretKey := config.SecretAccessKey != ""

	if hasAccessKey && !hasSecretKey {
		missing = append(missing, "pool.s3.secret_access_key")
	}
	if !hasAccessKey && hasSecretKey {
		missing = append(missing, "pool.s3.access_key_id")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}
