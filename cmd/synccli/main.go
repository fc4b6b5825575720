package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frotalog/registro/internal/client/engine"
	"github.com/frotalog/registro/internal/client/store"
	"github.com/frotalog/registro/internal/common/config"
	"github.com/frotalog/registro/pkg/logger"
	"github.com/frotalog/registro/pkg/version"
)

var (
	configPath string
	tokenPath  string

	rootCmd = &cobra.Command{
		Use:   "synccli",
		Short: "Device-side launch record client",
		Long:  `synccli keeps a local replica of launch records and synchronizes it with the central server`,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of synccli",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("synccli version %s\n", version.Get())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "synccli.yaml", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&tokenPath, "token-file", ".registro-token", "path to the saved bearer token")
	rootCmd.AddCommand(versionCmd, loginCmd(), syncCmd(), listCmd(), createCmd(), deleteCmd(), statusCmd())
}

type app struct {
	cfg    *config.SyncCLIConfig
	logger *zap.Logger
	store  *store.Store
	client *engine.Client
}

func newApp() (*app, error) {
	cfg, cfgPath, err := config.LoadConfig[config.SyncCLIConfig](configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration from %s: %w", cfgPath, err)
	}

	zlog, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database.DBName, zlog)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: zlog,
		store:  st,
		client: engine.NewClient(cfg.Server.URL, cfg.Server.Timeout),
	}, nil
}

func (a *app) close() {
	_ = a.store.Close()
	_ = a.logger.Sync()
}

func (a *app) token() (string, error) {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return "", fmt.Errorf("not logged in: %w", err)
	}
	return string(data), nil
}

func loginCmd() *cobra.Command {
	var email, senha string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the server and save the bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			resp, err := a.client.Login(cmd.Context(), email, senha)
			if err != nil {
				return err
			}
			if err := os.WriteFile(tokenPath, []byte(resp.Token), 0600); err != nil {
				return err
			}
			fmt.Printf("logged in as %s (empresa %d)\n", resp.User.Nome, resp.User.EmpresaID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&senha, "senha", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("senha")
	return cmd
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			token, err := a.token()
			if err != nil {
				return err
			}

			eng := engine.New(a.store, a.client, a.logger)
			result, err := eng.Sync(cmd.Context(), token)
			if err != nil {
				return err
			}

			fmt.Printf("pulled %d created / %d updated, pushed %d rows, %d rejected\n",
				result.PulledCreated, result.PulledUpdated, result.PushedRows, len(result.RejectedIDs))
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var tipo string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List local launch records",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			registros, err := a.store.QueryRegistros(cmd.Context(), store.RegistroFilter{Tipo: tipo})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(registros)
		},
	}
	cmd.Flags().StringVar(&tipo, "tipo", "", "filter by tipo (entrada or saida)")
	return cmd
}

func createCmd() *cobra.Command {
	var (
		tipo      string
		descricao string
		empresaID uint
		usuarioID uint
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a launch record locally (pending sync)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			registro, err := a.store.CreateRegistro(cmd.Context(), store.CreateRegistroInput{
				EmpresaID: empresaID,
				UsuarioID: usuarioID,
				Tipo:      tipo,
				DataHora:  time.Now(),
				Descricao: descricao,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created %s\n", registro.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&tipo, "tipo", "entrada", "entrada or saida")
	cmd.Flags().StringVar(&descricao, "descricao", "", "description")
	cmd.Flags().UintVar(&empresaID, "empresa", 0, "empresa id")
	cmd.Flags().UintVar(&usuarioID, "usuario", 0, "usuario id")
	_ = cmd.MarkFlagRequired("descricao")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a launch record (tombstone pushed on next sync)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.DeleteRegistro(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show watermark and pending change counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := context.Background()
			watermark, err := a.store.Watermark(ctx)
			if err != nil {
				return err
			}
			pending, err := a.store.PendingChanges(ctx)
			if err != nil {
				return err
			}

			if watermark == nil {
				fmt.Println("never synced")
			} else {
				fmt.Printf("last pulled at %s\n", time.UnixMilli(*watermark).Format(time.RFC3339))
			}
			for table, tc := range pending {
				fmt.Printf("%s: %d created, %d updated, %d deleted\n",
					table, len(tc.Created), len(tc.Updated), len(tc.Deleted))
			}
			return nil
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
