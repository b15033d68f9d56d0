// janusctl es la herramienta operativa del gateway: chequear config, listar
// providers y acuñar/inspeccionar states CSRF sin levantar el servidor.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/janus/internal/config"
	"github.com/dropDatabas3/janus/internal/provider"
	"github.com/dropDatabas3/janus/internal/store"
	"github.com/dropDatabas3/janus/internal/token"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:           "janusctl",
		Short:         "Herramienta operativa del auth gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "configs/config.yaml", "ruta del archivo de configuración")

	root.AddCommand(
		configCmd(&cfgPath),
		providerCmd(&cfgPath),
		stateCmd(&cfgPath),
		dbCmd(&cfgPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func configCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Operaciones sobre la configuración"}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Valida la configuración y reporta providers saltables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			skipped := 0
			for _, p := range cfg.Providers {
				if p.ClientID == "" || p.ClientSecret == "" {
					fmt.Printf("WARN provider %q: incomplete credentials (will be skipped)\n", p.ID)
					skipped++
				}
			}
			fmt.Printf("OK: %d providers, %d skippable, default=%s\n",
				len(cfg.Providers), skipped, cfg.Auth.DefaultProvider)
			return nil
		},
	})
	return cmd
}

func providerCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{Use: "provider", Short: "Operaciones sobre providers"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Lista los providers registrados (los mal formados no aparecen)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			reg := provider.Build(cfg.Providers)
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDISPLAY\tISSUER\tPATTERNS")
			for _, id := range reg.IDs() {
				r, _ := reg.Lookup(id)
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", r.ID, r.DisplayName, r.Issuer, r.PathPatterns)
			}
			return w.Flush()
		},
	})
	return cmd
}

func stateCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{Use: "state", Short: "Acuñar e inspeccionar states CSRF"}

	mint := &cobra.Command{
		Use:   "mint <provider-id>",
		Short: "Emite un state firmado para un provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			reg := provider.Build(cfg.Providers)
			r, ok := reg.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown provider %q", args[0])
			}
			issuer, err := token.NewIssuer(cfg.Auth.Issuer, cfg.Auth.SigningKey)
			if err != nil {
				return err
			}
			codec := token.NewCodec(issuer, cfg.Auth.Session.CookieName, cfg.SessionTTL(), cfg.StateTTL())
			jwt, err := codec.GenerateState(r.ID, r.Issuer, r.ClientID, r.Audience)
			if err != nil {
				return err
			}
			fmt.Println(token.EncodeStateValue(r.ID, jwt))
			return nil
		},
	}

	inspect := &cobra.Command{
		Use:   "inspect <state-value>",
		Short: "Valida un state y muestra lo que transporta",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			pid, jwt, ok := token.DecodeStateValue(args[0])
			if !ok {
				return fmt.Errorf("malformed state encoding (want providerId:state)")
			}
			issuer, err := token.NewIssuer(cfg.Auth.Issuer, cfg.Auth.SigningKey)
			if err != nil {
				return err
			}
			codec := token.NewCodec(issuer, cfg.Auth.Session.CookieName, cfg.SessionTTL(), cfg.StateTTL())
			claims, err := codec.ValidateState(jwt)
			if err != nil {
				return fmt.Errorf("state rejected: %w", err)
			}
			if claims.ProviderID != pid {
				return fmt.Errorf("prefix %q does not match signed provider id %q", pid, claims.ProviderID)
			}
			out, _ := json.MarshalIndent(claims, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.AddCommand(mint, inspect)
	return cmd
}

func dbCmd(cfgPath *string) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{Use: "db", Short: "Operaciones sobre el storage de usuarios"}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones embebidas contra Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				cfg, err := loadConfig(*cfgPath)
				if err != nil {
					return err
				}
				dsn = cfg.Storage.DSN
			}
			if dsn == "" {
				return fmt.Errorf("no DSN: set storage.dsn in config or pass --dsn")
			}
			pg, err := store.OpenPG(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := pg.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
	migrate.Flags().StringVar(&dsn, "dsn", "", "DSN de Postgres (sobreescribe storage.dsn)")

	cmd.AddCommand(migrate)
	return cmd
}
