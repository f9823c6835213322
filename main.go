package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"SyncBoard/internal/action"
	"SyncBoard/internal/config"
	"SyncBoard/internal/console"
	"SyncBoard/internal/export"
	"SyncBoard/internal/manager"
	boardnet "SyncBoard/internal/net"
	"SyncBoard/internal/state"
	"SyncBoard/internal/store"
)

const browseTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "YAML config file")
	role := flag.String("role", "", "standalone, host or participant")
	user := flag.String("user", "", "user id stamped on every action")
	listen := flag.String("listen", "", "host listen address")
	hostAddr := flag.String("join", "", "host address (ip:port) to join as a participant")
	storePath := flag.String("store", "", "board file for snapshot and journal")
	exportPath := flag.String("export", "", "export the canvas here on exit (.pdf or text)")
	replay := flag.Bool("replay", false, "rebuild the canvas from the journal instead of the snapshot")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "role":
			cfg.Role = config.Role(*role)
		case "user":
			cfg.User = *user
		case "listen":
			cfg.Listen = *listen
		case "join":
			cfg.Role = config.RoleParticipant
			cfg.HostAddr = *hostAddr
		case "store":
			cfg.StorePath = *storePath
		case "export":
			cfg.ExportPath = *exportPath
		}
	})
	// A share link as the first argument joins that host.
	if args := flag.Args(); len(args) > 0 {
		if addr, ok := boardnet.ParseShareLink(args[0]); ok {
			cfg.Role = config.RoleParticipant
			cfg.HostAddr = addr
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Role {
	case config.RoleHost:
		runHost(ctx, stop, cfg, *replay)
	case config.RoleParticipant:
		runParticipant(ctx, stop, cfg)
	default:
		runStandalone(ctx, stop, cfg, *replay)
	}
}

func managerConfig(cfg config.Config) manager.Config {
	return manager.Config{
		UserID:        cfg.User,
		QueueCapacity: cfg.QueueCapacity,
		PendingTTL:    cfg.PendingTTL,
		CallTimeout:   cfg.CallTimeout,
	}
}

// openBoard opens the configured store and restores its canvas. With no store
// configured it returns a nil store and an empty canvas.
func openBoard(cfg config.Config, replay bool) (*store.Store, *state.CanvasState) {
	canvas := state.NewCanvasState()
	if cfg.StorePath == "" {
		return nil, canvas
	}
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	if replay {
		entries, err := st.Journal()
		if err != nil {
			log.Fatalf("Failed to read journal: %v", err)
		}
		// Replaying through a standalone manager reuses its decode and apply
		// path without journaling the entries a second time.
		rebuild := manager.NewStandalone(manager.Config{UserID: cfg.User, Canvas: canvas})
		for _, e := range entries {
			if err := rebuild.ProcessIncomingAction(context.Background(), e); err != nil {
				log.Printf("[STORE] Skipping journal entry: %v", err)
			}
		}
		log.Printf("[STORE] Replayed %d journal entries", len(entries))
		return st, canvas
	}

	shapes, err := st.LoadSnapshot()
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}
	canvas.ReplaceAll(shapes)
	return st, canvas
}

// closeBoard compacts the snapshot, runs the configured export and closes the store.
func closeBoard(cfg config.Config, st *store.Store, canvas *state.CanvasState) {
	if cfg.ExportPath != "" {
		if err := export.ToFile(cfg.ExportPath, canvas.VisibleShapes()); err != nil {
			log.Printf("[EXPORT] Export failed: %v", err)
		}
	}
	if st == nil {
		return
	}
	if err := st.SaveSnapshot(canvas.Snapshot()); err != nil {
		log.Printf("[STORE] Failed to save snapshot: %v", err)
	}
	if err := st.Close(); err != nil {
		log.Printf("[STORE] Failed to close store: %v", err)
	}
}

func runConsole(ctx context.Context, stop context.CancelFunc, mgr manager.Manager) {
	console.Watch(mgr, os.Stdout)
	c := console.New(mgr, os.Stdout)
	go func() {
		if err := c.Run(ctx, os.Stdin); err != nil {
			log.Printf("[CONSOLE] Input failed: %v", err)
		}
		stop()
	}()
	<-ctx.Done()
}

func runStandalone(ctx context.Context, stop context.CancelFunc, cfg config.Config, replay bool) {
	log.Println("Starting as STANDALONE")
	st, canvas := openBoard(cfg, replay)
	mcfg := managerConfig(cfg)
	mcfg.Canvas = canvas
	if st != nil {
		mcfg.Journal = st
	}
	board := manager.NewStandalone(mcfg)
	go board.Run(ctx)

	runConsole(ctx, stop, board)
	closeBoard(cfg, st, canvas)
}

func runHost(ctx context.Context, stop context.CancelFunc, cfg config.Config, replay bool) {
	log.Println("Starting as HOST")
	st, canvas := openBoard(cfg, replay)
	mcfg := managerConfig(cfg)
	mcfg.Canvas = canvas
	if st != nil {
		mcfg.Journal = st
	}

	srv := boardnet.NewHostServer()
	host := manager.NewHost(mcfg, srv)
	srv.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		data, err := action.EncodeSnapshot(host.CanvasState().Snapshot())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})
	srv.HandleFunc("/export.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		if err := export.WritePDF(w, host.CanvasState().VisibleShapes()); err != nil {
			log.Printf("[EXPORT] PDF for %s failed: %v", r.RemoteAddr, err)
		}
	})

	go func() {
		if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	go host.Run(ctx)

	port := listenPort(cfg.Listen)
	if cfg.Advertise {
		mdnsServer, err := boardnet.Advertise(port)
		if err != nil {
			log.Printf("[MDNS] Not advertising: %v", err)
		} else {
			defer mdnsServer.Shutdown()
			log.Printf("[MDNS] Advertising board on port %d", port)
		}
	}
	log.Printf("Share link: %s", boardnet.ShareLink(boardnet.GetOutgoingIP(), port))

	runConsole(ctx, stop, host)
	host.Close()
	closeBoard(cfg, st, canvas)
}

func runParticipant(ctx context.Context, stop context.CancelFunc, cfg config.Config) {
	log.Println("Starting as PARTICIPANT")
	addr := cfg.HostAddr
	if addr == "" {
		found, err := boardnet.Browse(ctx, browseTimeout)
		if err != nil {
			log.Fatalf("Failed to find a host: %v", err)
		}
		log.Printf("[MDNS] Found host at %s", found)
		addr = found
	}

	client, err := boardnet.Dial(ctx, boardnet.HostURL(addr, cfg.User), cfg.DialTimeout)
	if err != nil {
		log.Fatalf("Failed to connect to host: %v", err)
	}
	defer client.Close()

	p := manager.NewParticipant(managerConfig(cfg), client)
	if err := p.Sync(ctx); err != nil {
		log.Fatalf("Failed to synchronise with host: %v", err)
	}
	go p.Run(ctx)
	go func() {
		select {
		case <-client.Done():
			log.Println("[NET] Disconnected from host")
			stop()
		case <-ctx.Done():
		}
	}()

	runConsole(ctx, stop, p)
	p.Close()
	closeBoard(cfg, nil, p.CanvasState())
}

func listenPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(portStr)
	return port
}
