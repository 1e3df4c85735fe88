package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/anabananasophia/Talia-bot/internal/config"
	"github.com/anabananasophia/Talia-bot/internal/engine"
	"github.com/anabananasophia/Talia-bot/internal/providers"
	"github.com/anabananasophia/Talia-bot/internal/slack"
	"github.com/anabananasophia/Talia-bot/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and connectivity health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("talia doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults + env)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Agent:")
	fmt.Printf("    %-14s %s\n", "Name:", orMissing(cfg.Agent.Name))
	fmt.Printf("    %-14s %s\n", "User ID:", orMissing(cfg.Agent.UserID))
	fmt.Printf("    %-14s %s\n", "Founder ID:", orMissing(cfg.Agent.FounderID))
	fmt.Printf("    %-14s %d keyword(s)\n", "Keywords:", len(cfg.Agent.Keywords))
	if _, err := engine.NewHoursGate(cfg.Engine.WorkingHours, cfg.Agent.FounderID); err != nil {
		fmt.Printf("    %-14s INVALID (%s)\n", "Hours:", err)
	} else {
		fmt.Printf("    %-14s OK\n", "Hours:")
	}

	fmt.Println()
	fmt.Println("  Secrets:")
	fmt.Printf("    %-14s %s\n", "Bot token:", presence(cfg.Slack.BotToken))
	fmt.Printf("    %-14s %s\n", "App token:", presence(cfg.Slack.AppToken))
	fmt.Printf("    %-14s %s\n", "Provider key:", presence(cfg.Provider.APIKey))

	fmt.Println()
	fmt.Println("  Store:")
	driver := cfg.Store.Driver
	if driver == "" {
		driver = "memory"
	}
	fmt.Printf("    %-14s %s\n", "Driver:", driver)
	if st, err := store.Open(cfg.Store); err != nil {
		fmt.Printf("    %-14s OPEN FAILED (%s)\n", "Status:", err)
	} else {
		st.Close()
		fmt.Printf("    %-14s OK\n", "Status:")
	}

	if cfg.Provider.APIKey != "" {
		fmt.Println()
		fmt.Println("  Provider:")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := providers.NewOpenAIProvider(cfg.Provider).Ping(ctx)
		cancel()
		if err != nil {
			fmt.Printf("    %-14s UNREACHABLE (%s)\n", "Endpoint:", err)
		} else {
			fmt.Printf("    %-14s OK (model %s)\n", "Endpoint:", orMissing(cfg.Provider.Model))
		}
	}

	if cfg.Slack.BotToken != "" {
		fmt.Println()
		fmt.Println("  Slack:")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client := slack.NewClient(cfg.Slack.BotToken, cfg.Slack.AppToken, cfg.Slack.APIBase)
		userID, err := client.AuthTest(ctx)
		if err != nil {
			fmt.Printf("    %-14s AUTH FAILED (%s)\n", "auth.test:", err)
			return
		}
		fmt.Printf("    %-14s OK (bot user %s)\n", "auth.test:", userID)
		if cfg.Agent.UserID != "" && cfg.Agent.UserID != userID {
			fmt.Printf("    %-14s agent.user_id is %s but the token belongs to %s\n", "WARNING:", cfg.Agent.UserID, userID)
		}
	}
}

func orMissing(v string) string {
	if v == "" {
		return "(missing)"
	}
	return v
}

func presence(v string) string {
	if v == "" {
		return "MISSING"
	}
	return "set"
}
