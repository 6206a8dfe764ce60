package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"govdash/internal/app"
	"govdash/internal/config"
	"govdash/internal/governance"
	"govdash/internal/horizon"
	"govdash/internal/util"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	a, flow, err := build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== Governance Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Load collateral ratio")
		fmt.Println("3) Execute governance change")
		fmt.Println("4) Look up next sequence number")
		fmt.Println("5) Edit contracts and ratio bounds")
		fmt.Println("6) Save config")
		fmt.Println("7) Launch dashboard")
		fmt.Println("8) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg, flow.View())
		case "2":
			loadRatio(flow)
		case "3":
			executeChange(reader, flow)
		case "4":
			lookupSequence(reader, a, cfg)
		case "5":
			editGovernance(reader, cfg)
			a, flow = rebuild(a, flow, cfg)
		case "6":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "7":
			launchDashboard(reader)
		case "8":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				a, flow = rebuild(a, flow, cfg)
				fmt.Println("config reloaded")
			}
		case "0":
			_ = a.Close()
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func build(cfg *config.Config) (*app.App, *governance.Flow, error) {
	a, err := app.New(cfg, util.NewConsoleLogger(cfg.App.LogLevel))
	if err != nil {
		return nil, nil, err
	}
	return a, a.NewFlow("tui-" + uuid.NewString()[:8]), nil
}

// rebuild swaps in a new service graph, keeping the old one if the new config does not wire.
func rebuild(a *app.App, flow *governance.Flow, cfg *config.Config) (*app.App, *governance.Flow) {
	next, nextFlow, err := build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keeping previous settings: %v\n", err)
		return a, flow
	}
	_ = a.Close()
	return next, nextFlow
}

func printSummary(cfg *config.Config, v governance.View) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Horizon: %s\n", cfg.Network.HorizonURL)
	fmt.Printf("RPC: %s\n", cfg.Network.RPCURL)
	fmt.Printf("Network: %s\n", cfg.Network.Passphrase)
	fmt.Printf("Governance contract: %s\n", v.GovernanceContract)
	fmt.Printf("XAsset contract: %s\n", v.XAssetContract)
	switch {
	case v.Wallet == "":
		fmt.Println("Wallet: not connected")
	case v.CanSign:
		fmt.Printf("Wallet: %s (signing)\n", v.Wallet)
	default:
		fmt.Printf("Wallet: %s (watch only)\n", v.Wallet)
	}
	fmt.Printf("Ratio bounds: [%d, %d] basis points (0 = unset)\n", cfg.Governance.MinRatioBP, cfg.Governance.MaxRatioBP)
	if v.RatioBP != nil {
		fmt.Printf("Last loaded ratio: %s (%d basis points)\n", v.RatioPercent, *v.RatioBP)
	}
}

func loadRatio(flow *governance.Flow) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	v, err := flow.LoadRatio(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return
	}
	printAction(v.Refresh)
}

func executeChange(reader *bufio.Reader, flow *governance.Flow) {
	current := flow.View()
	fmt.Println("\n--- Execute Governance Change ---")
	target := promptString(reader, "Target contract ID", current.Target)
	value := promptString(reader, "New collateral ratio (basis points)", current.NewValue)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	v, err := flow.ExecuteChange(ctx, target, value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return
	}
	printAction(v.Execute)
	if v.Execute.Phase == governance.Succeeded {
		printAction(v.Refresh)
	}
}

func lookupSequence(reader *bufio.Reader, a *app.App, cfg *config.Config) {
	def := cfg.Wallet.Address
	if a.Wallet != nil {
		def = a.Wallet.Address()
	}
	account := promptString(reader, "Public key (G... or M...)", def)
	if account == "" {
		fmt.Println("no public key given")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := a.Lookup.Fetch(ctx, horizon.Query{
		PublicKey:  account,
		HorizonURL: cfg.Network.HorizonURL,
		Headers:    cfg.Network.Headers,
		Enabled:    true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookup failed: %v\n", err)
		return
	}
	if res.State == horizon.StateAccountMissing {
		fmt.Println(res.Message)
		return
	}
	fmt.Printf("Next sequence for %s: %s\n", res.AccountID, res.NextSequence)
}

func editGovernance(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Contracts / Bounds ---")
	cfg.Contracts.Governance = promptString(reader, "Governance contract ID", cfg.Contracts.Governance)
	cfg.Contracts.XAsset = promptString(reader, "XAsset contract ID", cfg.Contracts.XAsset)
	cfg.Governance.MinRatioBP = promptUint32(reader, "Minimum ratio (basis points)", cfg.Governance.MinRatioBP)
	cfg.Governance.MaxRatioBP = promptUint32(reader, "Maximum ratio (basis points)", cfg.Governance.MaxRatioBP)
}

func launchDashboard(reader *bufio.Reader) {
	fmt.Println("Launching dashboard (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/govdash", "serve", "--config", locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start dashboard: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the dashboard and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func printAction(st governance.ActionState) {
	switch st.Phase {
	case governance.Failed:
		fmt.Printf("error: %s\n", st.Message)
	case governance.Succeeded:
		fmt.Println(st.Message)
	}
}

func promptString(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	return line
}

func promptUint32(reader *bufio.Reader, label string, current uint32) uint32 {
	fmt.Printf("%s [%d]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseUint(line, 10, 32)
	if err != nil {
		fmt.Printf("invalid number, keeping %d\n", current)
		return current
	}
	return uint32(val)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(locateConfig())
	if err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg)
	return cfg, nil
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}
