// Command tasknet-devserver runs a local stand-in for the TaskNet API with
// the same token endpoints, for integration tests and manual runs. It
// prints a one-line JSON contract on stdout once it is listening.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"git.sr.ht/~jakintosh/tasknet/internal/api"
	"git.sr.ht/~jakintosh/tasknet/internal/database"
	"git.sr.ht/~jakintosh/tasknet/internal/routing"
	"git.sr.ht/~jakintosh/tasknet/internal/service"
)

// Config holds all command-line configuration
type Config struct {
	ListenAddr    string
	DBPath        string
	Users         []UserCredentials
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	PurgeInterval time.Duration
	Quiet         bool
}

// UserCredentials holds username and password
type UserCredentials struct {
	Handle   string
	Password string
}

// OutputContract is the JSON structure emitted on stdout
type OutputContract struct {
	BaseURL    string       `json:"base_url"`
	APIBase    string       `json:"api_base"`
	DBPath     string       `json:"db_path"`
	AccessTTL  string       `json:"access_ttl"`
	RefreshTTL string       `json:"refresh_ttl"`
	Users      []OutputUser `json:"users"`
}

type OutputUser struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// UserFlag is a custom flag type for repeatable --user flags
type UserFlag []UserCredentials

func (u *UserFlag) String() string {
	return fmt.Sprintf("%v", *u)
}

func (u *UserFlag) Set(value string) error {
	handle, password, ok := strings.Cut(value, ":")
	if !ok || handle == "" {
		return fmt.Errorf("user must be in format 'handle:password'")
	}
	*u = append(*u, UserCredentials{Handle: handle, Password: password})
	return nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Suppress logs if requested
	if cfg.Quiet {
		log.SetOutput(io.Discard)
	}

	db, err := database.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v\n", err)
	}
	defer db.Close()

	svc := service.New(
		db.IdentityStore(),
		db.TokenStore(),
		cfg.AccessTTL,
		cfg.RefreshTTL,
		service.PasswordModeProduction,
	)

	if err := seedUsers(svc, cfg.Users); err != nil {
		log.Fatalf("failed to seed users: %v\n", err)
	}

	r := routing.BuildRouter(api.New(svc))

	// Start HTTP server, ephemeral port by default
	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v\n", err)
	}

	addr := listener.Addr().(*net.TCPAddr)
	contract := buildContract(cfg, fmt.Sprintf("http://%s", addr.String()))
	if err := json.NewEncoder(os.Stdout).Encode(contract); err != nil {
		log.Fatalf("failed to encode JSON contract: %v\n", err)
	}

	server := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(listener)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.PurgeInterval > 0 {
		go purgeLoop(ctx, svc, cfg.PurgeInterval)
	}

	select {
	case err := <-serverErr:
		log.Fatalf("server error: %v\n", err)
	case <-ctx.Done():
		log.Printf("shutting down\n")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v\n", err)
	}
}

func parseFlags(args []string) (Config, error) {
	var cfg Config
	var users UserFlag

	fs := flag.NewFlagSet("tasknet-devserver", flag.ContinueOnError)
	fs.StringVar(&cfg.ListenAddr, "listen", "127.0.0.1:0", "Listen address (default uses ephemeral port)")
	fs.StringVar(&cfg.DBPath, "db", ":memory:", "SQLite database path")
	fs.Var(&users, "user", "User credentials in format 'handle:password' (repeatable)")
	fs.DurationVar(&cfg.AccessTTL, "access-ttl", service.DefaultAccessTTL, "Access token lifetime")
	fs.DurationVar(&cfg.RefreshTTL, "refresh-ttl", service.DefaultRefreshTTL, "Refresh token lifetime")
	fs.DurationVar(&cfg.PurgeInterval, "purge-interval", time.Minute, "How often expired tokens are deleted (0 disables)")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "Suppress log output")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return Config{}, fmt.Errorf("--access-ttl and --refresh-ttl must be positive")
	}

	if len(users) == 0 {
		cfg.Users = []UserCredentials{{Handle: "test", Password: "test"}}
	} else {
		cfg.Users = users
	}

	return cfg, nil
}

func buildContract(cfg Config, baseURL string) OutputContract {
	contract := OutputContract{
		BaseURL:    baseURL,
		APIBase:    baseURL + api.Prefix,
		DBPath:     cfg.DBPath,
		AccessTTL:  cfg.AccessTTL.String(),
		RefreshTTL: cfg.RefreshTTL.String(),
		Users:      make([]OutputUser, len(cfg.Users)),
	}
	for i, user := range cfg.Users {
		contract.Users[i] = OutputUser{Handle: user.Handle, Password: user.Password}
	}
	return contract
}

func seedUsers(svc *service.Service, users []UserCredentials) error {
	for _, user := range users {
		if err := svc.Register(user.Handle, user.Password); err != nil {
			return fmt.Errorf("user '%s': %w", user.Handle, err)
		}
		log.Printf("seeded user: %s\n", user.Handle)
	}
	return nil
}

func purgeLoop(ctx context.Context, svc *service.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpired()
			if err != nil {
				log.Printf("purge: %v\n", err)
				continue
			}
			if n > 0 {
				log.Printf("purged %d expired tokens\n", n)
			}
		}
	}
}
