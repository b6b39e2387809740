package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mealmapp/internal/api"
	"mealmapp/internal/app"
	"mealmapp/internal/config"
	"mealmapp/internal/database"
	"mealmapp/internal/llm"
	"mealmapp/internal/logger"
	"mealmapp/internal/metrics"
	"mealmapp/internal/planner"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.LogDevelopment,
		Service:     "mealmapp",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.DatabasePath, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	var textGen llm.TextGenerator
	if cfg.EstimatorEnabled() {
		gemini, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			zlog.Fatal("failed to initialize Gemini client", zap.Error(err))
		}
		defer gemini.Close()
		textGen = gemini
	}

	collector := metrics.NewCollector()
	application := app.NewApp(cfg, db, textGen, collector, zlog)

	if err := run(ctx, cfg, application, collector, zlog, os.Args[1], os.Args[2:]); err != nil {
		zlog.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, application *app.App, collector *metrics.Collector, zlog *zap.Logger, command string, args []string) error {
	switch command {
	case "generate":
		fs := flag.NewFlagSet("generate", flag.ExitOnError)
		user := fs.String("user", "", "User id to plan for")
		fs.Parse(args)
		if *user == "" {
			return fmt.Errorf("-user is required")
		}

		notifier := planner.NotifierFunc(func(_ context.Context, n planner.Notice) {
			fmt.Printf("[%s] %s\n", n.Kind, n.Message)
		})
		menu, err := application.GenerateWeeklyMenu(ctx, *user, notifier)
		if err != nil {
			return err
		}
		printMenu(menu)
		if list, err := application.LatestShoppingList(ctx, *user); err == nil {
			fmt.Println("\n=== SHOPPING LIST ===")
			for _, item := range list.Items {
				if item.Quantity > 0 {
					fmt.Printf("- %s: %g %s\n", item.Name, item.Quantity, item.Unit)
				} else {
					fmt.Printf("- %s\n", item.Name)
				}
			}
		}

	case "import-recipes", "export-recipes":
		fs := flag.NewFlagSet(command, flag.ExitOnError)
		user := fs.String("user", "", "User id owning the recipes")
		dir := fs.String("dir", cfg.RecipeStoragePath, "Directory of recipe JSON files")
		fs.Parse(args)
		if *user == "" {
			return fmt.Errorf("-user is required")
		}

		if command == "import-recipes" {
			n, err := application.ImportRecipes(ctx, *user, *dir)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d recipes from %s.\n", n, *dir)
		} else {
			n, err := application.ExportRecipes(ctx, *user, *dir)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d recipes to %s.\n", n, *dir)
		}

	case "estimate":
		fs := flag.NewFlagSet("estimate", flag.ExitOnError)
		user := fs.String("user", "", "User id whose recipes to complete")
		fs.Parse(args)
		if *user == "" {
			return fmt.Errorf("-user is required")
		}
		n, err := application.EstimateMissing(ctx, *user)
		if err != nil {
			return err
		}
		fmt.Printf("Estimated %d recipes.\n", n)

	case "clip":
		fs := flag.NewFlagSet("clip", flag.ExitOnError)
		user := fs.String("user", "", "User id to save the recipe for")
		fs.Parse(args)
		if *user == "" || fs.NArg() != 1 {
			return fmt.Errorf("usage: clip -user <id> <url>")
		}
		rec, err := application.ClipRecipe(ctx, *user, fs.Arg(0))
		if err != nil {
			return err
		}
		fmt.Printf("Saved '%s' as %s.\n", rec.Name, rec.ID)

	case "sync-ghost", "publish-menu":
		fs := flag.NewFlagSet(command, flag.ExitOnError)
		user := fs.String("user", "", "User id")
		fs.Parse(args)
		if *user == "" {
			return fmt.Errorf("-user is required")
		}

		if command == "sync-ghost" {
			n, err := application.SyncGhostRecipes(ctx, *user)
			if err != nil {
				return err
			}
			fmt.Printf("Synced %d recipes from Ghost.\n", n)
		} else {
			post, err := application.PublishMenu(ctx, *user)
			if err != nil {
				return err
			}
			fmt.Printf("Created draft post %s (%s).\n", post.ID, post.URL)
		}

	case "token":
		fs := flag.NewFlagSet("token", flag.ExitOnError)
		user := fs.String("user", "", "User id (token subject)")
		ttl := fs.Duration("ttl", 30*24*time.Hour, "Token lifetime")
		fs.Parse(args)
		auth, err := api.NewAuthenticator(cfg.JWTSecret)
		if err != nil {
			return err
		}
		token, err := auth.NewToken(*user, *ttl)
		if err != nil {
			return err
		}
		fmt.Println(token)

	case "serve":
		auth, err := api.NewAuthenticator(cfg.JWTSecret)
		if err != nil {
			return err
		}
		srv := api.NewServer(application, auth, collector, zlog.Named("api"))
		return srv.Run(ctx, fmt.Sprintf(":%d", cfg.HTTPPort))

	case "metrics-cleanup":
		fs := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := fs.Int("days", 30, "Keep records for the last N days")
		fs.Parse(args)

		affected, err := application.CleanupMetrics(ctx, *days)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)

	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
	return nil
}

func printMenu(menu *planner.Menu) {
	fmt.Printf("\n=== WEEKLY MENU (%s) ===\n", menu.WeekStart.Format(time.DateOnly))
	for i, day := range menu.Grid.Days {
		fmt.Printf("%-10s", menu.WeekStart.AddDate(0, 0, i).Weekday())
		for j, slot := range day.Slots {
			if j > 0 {
				fmt.Print(" | ")
			}
			if slot.Filled() {
				fmt.Print(slot.Recipe.Name)
			} else {
				fmt.Print("-")
			}
		}
		fmt.Println()
	}
}

func printUsage() {
	fmt.Println("Usage: mealmapp <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate           Plan next week's menu for a user")
	fmt.Println("  import-recipes     Load recipe JSON files into the database")
	fmt.Println("  export-recipes     Write a user's recipes as JSON files")
	fmt.Println("  estimate           Fill in missing calories and prices with Gemini")
	fmt.Println("  clip               Import a recipe from a web page")
	fmt.Println("  sync-ghost         Import recipe posts from the Ghost blog")
	fmt.Println("  publish-menu       Post the latest menu to the Ghost blog as a draft")
	fmt.Println("  token              Issue an API bearer token")
	fmt.Println("  serve              Run the HTTP API")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}
