package main

import (
	"context"
	"fmt"

	"price-service/internal/catalog"
	"price-service/internal/model"
	"price-service/internal/service"
	"price-service/pkg/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := database.Open(cfg, log)
			if err != nil {
				return err
			}
			defer database.Close(db)

			return database.Migrate(db, log, model.Models()...)
		},
	}
}

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert or refresh catalog products from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			products, err := catalog.Load(file)
			if err != nil {
				return err
			}

			st, err := openPostgresStores(cfg, log)
			if err != nil {
				return err
			}
			defer st.close()

			if err := service.NewCatalogService(st.products).Seed(context.Background(), products); err != nil {
				return err
			}
			log.Info("Catalog seeded", zap.String("file", file), zap.Int("products", len(products)))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "catalog YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newProvisionCmd() *cobra.Command {
	var in service.ProvisionInput

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create a supermarket account if needed and issue a new API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			st, err := openPostgresStores(cfg, log)
			if err != nil {
				return err
			}
			defer st.close()

			p, err := service.NewAccountService(st.accounts, cfg.Auth.BcryptCost, nil).Provision(context.Background(), in)
			if err != nil {
				return err
			}
			log.Info("API key issued",
				zap.String("supermarket_id", p.Supermarket.ID),
				zap.String("key_id", p.KeyID),
				zap.String("mode", string(p.Key.Mode)))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "supermarket: %s (%s)\n", p.Supermarket.ID, p.Supermarket.Slug)
			fmt.Fprintf(out, "key id:      %s\n", p.KeyID)
			fmt.Fprintf(out, "api key:     %s\n", p.Key)
			fmt.Fprintln(out, "The API key is shown only once.")
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name (required for a new supermarket)")
	cmd.Flags().StringVar(&in.Slug, "slug", "", "account slug, lowercase letters, digits and dashes")
	cmd.Flags().BoolVar(&in.Demo, "demo", false, "issue a sandbox key")
	_ = cmd.MarkFlagRequired("slug")
	return cmd
}

func newRevokeCmd() *cobra.Command {
	var keyID string

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			st, err := openPostgresStores(cfg, log)
			if err != nil {
				return err
			}
			defer st.close()

			if err := service.NewAccountService(st.accounts, cfg.Auth.BcryptCost, nil).Revoke(context.Background(), keyID); err != nil {
				return err
			}
			log.Info("API key revoked", zap.String("key_id", keyID))
			return nil
		},
	}
	cmd.Flags().StringVar(&keyID, "key-id", "", "id of the key to revoke")
	_ = cmd.MarkFlagRequired("key-id")
	return cmd
}
