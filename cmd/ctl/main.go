package main

import (
	"fmt"
	"os"
	"strconv"

	"commodity-sim-go/internal/config"
	"commodity-sim-go/internal/logger"
)

const usage = `usage: ctl <command> [args]

commands:
  login <username>                 create a fresh session
  resume <username>                restore a persisted session
  logout <session-id>              discard the session
  price <instrument>               current simulated price
  history <instrument>             recent price window
  buy <session-id> <instrument> <quantity>
  sell <session-id> <instrument> <quantity>
  transactions <session-id> [asc|desc]
  portfolio <session-id>           balance, holdings, total value
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	client := newAPIClient(fmt.Sprintf("http://localhost:%d", cfg.Server.Port), log)

	if err := run(client, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(client *apiClient, command string, args []string) error {
	switch command {
	case "login", "resume":
		if len(args) != 1 {
			return fmt.Errorf("%s takes exactly one argument: <username>", command)
		}
		res, err := client.Login(args[0], command == "resume")
		if err != nil {
			return err
		}
		fmt.Printf("session %s for %s, balance %.2f\n", res.SessionID, res.Username, res.Balance)

	case "logout":
		if len(args) != 1 {
			return fmt.Errorf("logout takes exactly one argument: <session-id>")
		}
		if err := client.Logout(args[0]); err != nil {
			return err
		}
		fmt.Println("logged out")

	case "price":
		if len(args) != 1 {
			return fmt.Errorf("price takes exactly one argument: <instrument>")
		}
		res, err := client.Price(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %.2f\n", res.Instrument, res.Price)

	case "history":
		if len(args) != 1 {
			return fmt.Errorf("history takes exactly one argument: <instrument>")
		}
		points, err := client.History(args[0])
		if err != nil {
			return err
		}
		for _, p := range points {
			fmt.Printf("%s  %.2f\n", p.Timestamp.Format("15:04:05"), p.Price)
		}

	case "buy", "sell":
		if len(args) != 3 {
			return fmt.Errorf("%s takes: <session-id> <instrument> <quantity>", command)
		}
		quantity, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid quantity %q: %w", args[2], err)
		}
		tx, err := client.Trade(command, args[0], args[1], quantity)
		if err != nil {
			return err
		}
		fmt.Printf("%s %.4f %s at %.2f (tx %s)\n", tx.Kind, tx.Quantity, tx.Instrument, tx.UnitPrice, tx.ID)

	case "transactions":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("transactions takes: <session-id> [asc|desc]")
		}
		order := "desc"
		if len(args) == 2 {
			order = args[1]
		}
		txs, err := client.Transactions(args[0], order)
		if err != nil {
			return err
		}
		for _, tx := range txs {
			fmt.Printf("%s  %-4s %.4f %s at %.2f\n",
				tx.Timestamp.Format("2006-01-02 15:04:05"), tx.Kind, tx.Quantity, tx.Instrument, tx.UnitPrice)
		}

	case "portfolio":
		if len(args) != 1 {
			return fmt.Errorf("portfolio takes exactly one argument: <session-id>")
		}
		res, err := client.Portfolio(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("balance: %.2f\n", res.Balance)
		for instrument, quantity := range res.Holdings {
			fmt.Printf("%s: %.4f units\n", instrument, quantity)
		}
		fmt.Printf("total value: %.2f\n", res.TotalValue)

	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
	return nil
}
