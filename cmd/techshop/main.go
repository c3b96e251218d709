package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/urfave/cli/v3"

	"techshop/internal/cartclient"
	"techshop/internal/config"
	"techshop/internal/domain"
	"techshop/internal/http/handlers"
	applog "techshop/internal/log"
	"techshop/internal/repos"
	"techshop/internal/services"
)

func main() {
	cmd := &cli.Command{
		Name:   "techshop",
		Usage:  "laptop store API and cart tools",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "Apply the database schema",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := config.Load()
					db, err := repos.Open(cfg.DBDSN)
					if err != nil {
						return err
					}
					defer db.Close()
					applog.Background("db.migrate", nil, map[string]any{"dsn": cfg.DBDSN})
					return nil
				},
			},
			{
				Name:  "seed",
				Usage: "Insert demo catalog, users and orders into an empty database",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := config.Load()
					db, err := repos.Open(cfg.DBDSN)
					if err != nil {
						return err
					}
					defer db.Close()
					err = repos.Seed(db)
					applog.Background("db.seed", err, map[string]any{"dsn": cfg.DBDSN})
					return err
				},
			},
			{
				Name:  "generate-keys",
				Usage: "Print fresh secrets for .env",
				Action: func(ctx context.Context, c *cli.Command) error {
					keys, err := config.GeneratedKeys()
					if err != nil {
						return err
					}
					names := make([]string, 0, len(keys))
					for k := range keys {
						names = append(names, k)
					}
					sort.Strings(names)
					for _, k := range names {
						fmt.Printf("%s=%s\n", k, keys[k])
					}
					return nil
				},
			},
			cartCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(ctx context.Context, c *cli.Command) error {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.Open(cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.SeedDemo {
		if err := repos.Seed(db); err != nil {
			return err
		}
	}

	app, _ := handlers.NewApp(cfg, db, handlers.DefaultLimits())
	applog.Background("server.start", nil, map[string]any{"port": cfg.Port, "env": cfg.Env})
	return app.Listen(":" + cfg.Port)
}

func cartCommand() *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "Manage the shopper's cart from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8080",
				Usage:   "API base URL",
				Sources: cli.EnvVars("TECHSHOP_URL"),
			},
			&cli.StringFlag{
				Name:  "state",
				Usage: "cart state file (default ~/.techshop/cart.json)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show held items",
				Action: withCart(func(ctx context.Context, c *cli.Command, cart *cartclient.Cart, _ *cartclient.API) error {
					if err := cart.Refresh(ctx); err != nil {
						return err
					}
					printCart(cart)
					return nil
				}),
			},
			{
				Name:      "add",
				Usage:     "Add a product (id or slug)",
				ArgsUsage: "<product> [quantity] [variantId]",
				Action: withCart(func(ctx context.Context, c *cli.Command, cart *cartclient.Cart, api *cartclient.API) error {
					if c.Args().Len() < 1 {
						return cli.Exit("product is required", 2)
					}
					qty, err := quantityArg(c, 1, 1)
					if err != nil {
						return err
					}
					p, err := api.Product(ctx, c.Args().Get(0))
					if err != nil {
						return err
					}
					it := cartclient.Item{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: qty}
					if vid := c.Args().Get(2); vid != "" {
						v, ok := findVariant(p.Variants, vid)
						if !ok {
							return cli.Exit("variant "+vid+" does not belong to "+p.Name, 2)
						}
						it.VariantID = v.ID
						it.Name = p.Name + " (" + v.Value + ")"
						it.Price = domain.EffectivePrice(p.Price, v.Price)
					}
					if err := cart.Add(ctx, it); err != nil {
						return err
					}
					printCart(cart)
					return nil
				}),
			},
			{
				Name:      "update",
				Usage:     "Set an item's quantity",
				ArgsUsage: "<itemId> <quantity>",
				Action: withCart(func(ctx context.Context, c *cli.Command, cart *cartclient.Cart, _ *cartclient.API) error {
					if c.Args().Len() < 2 {
						return cli.Exit("itemId and quantity are required", 2)
					}
					qty, err := quantityArg(c, 1, 0)
					if err != nil {
						return err
					}
					if err := cart.Update(ctx, c.Args().Get(0), qty); err != nil {
						return err
					}
					printCart(cart)
					return nil
				}),
			},
			{
				Name:      "remove",
				Usage:     "Remove an item",
				ArgsUsage: "<itemId>",
				Action: withCart(func(ctx context.Context, c *cli.Command, cart *cartclient.Cart, _ *cartclient.API) error {
					if c.Args().Len() < 1 {
						return cli.Exit("itemId is required", 2)
					}
					if err := cart.Remove(ctx, c.Args().Get(0)); err != nil {
						return err
					}
					printCart(cart)
					return nil
				}),
			},
			{
				Name:  "clear",
				Usage: "Remove every item",
				Action: withCart(func(ctx context.Context, c *cli.Command, cart *cartclient.Cart, _ *cartclient.API) error {
					if err := cart.Refresh(ctx); err != nil {
						return err
					}
					if err := cart.Clear(ctx); err != nil {
						return err
					}
					printCart(cart)
					return nil
				}),
			},
			{
				Name:  "login",
				Usage: "Sign in and merge the local cart into the account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("TECHSHOP_PASSWORD")},
				},
				Action: withCart(func(ctx context.Context, c *cli.Command, cart *cartclient.Cart, api *cartclient.API) error {
					token, err := api.Login(ctx, c.String("email"), c.String("password"))
					if err != nil {
						return err
					}
					skipped, err := cart.SignIn(ctx, token)
					for _, s := range skipped {
						fmt.Printf("skipped %s %s x%d: %s\n", s.ProductID, s.VariantID, s.Quantity, s.Reason)
					}
					if err != nil {
						return err
					}
					printCart(cart)
					return nil
				}),
			},
			{
				Name:  "logout",
				Usage: "Forget the token and start an empty local cart",
				Action: withCart(func(ctx context.Context, c *cli.Command, cart *cartclient.Cart, _ *cartclient.API) error {
					return cart.SignOut()
				}),
			},
		},
	}
}

type cartAction func(ctx context.Context, c *cli.Command, cart *cartclient.Cart, api *cartclient.API) error

func withCart(fn cartAction) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		path := c.String("state")
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path = filepath.Join(home, ".techshop", "cart.json")
		}
		api := cartclient.NewAPI(c.String("server"))
		cart, err := cartclient.Open(cartclient.FileStore{Path: path}, api)
		if err != nil {
			return err
		}
		return fn(ctx, c, cart, api)
	}
}

// quantityArg parses positional argument i, falling back to def when absent.
func quantityArg(c *cli.Command, i, def int) (int, error) {
	raw := c.Args().Get(i)
	if raw == "" && def > 0 {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, cli.Exit("quantity must be a positive number", 2)
	}
	return n, nil
}

func findVariant(vs []domain.Variant, id string) (domain.Variant, bool) {
	for _, v := range vs {
		if v.ID == id || v.SKU == id {
			return v, true
		}
	}
	return domain.Variant{}, false
}

func printCart(cart *cartclient.Cart) {
	fmt.Printf("cart (%s)\n", cart.Mode())
	for _, it := range cart.Items() {
		fmt.Printf("  %-28s %-36s x%-3d %s\n", it.ID, it.Name, it.Quantity, services.FormatMoney(it.Total()))
	}
	fmt.Printf("  %d items, total %s\n", cart.Count(), services.FormatMoney(cart.Total()))
}
