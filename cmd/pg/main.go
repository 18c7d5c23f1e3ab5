package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/pengraph/pengraph/internal/datasource"
	"github.com/pengraph/pengraph/pkg/analysis"
	"github.com/pengraph/pengraph/pkg/config"
	"github.com/pengraph/pengraph/pkg/editor"
	"github.com/pengraph/pengraph/pkg/graph"
	"github.com/pengraph/pengraph/pkg/loader"
	"github.com/pengraph/pengraph/pkg/model"
	"github.com/pengraph/pengraph/pkg/remote"
	"github.com/pengraph/pengraph/pkg/traverse"
	"github.com/pengraph/pengraph/pkg/version"
	"github.com/pengraph/pengraph/pkg/watcher"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")

	serverURL := flag.String("server", "", "Remote API base URL (overrides config)")
	token := flag.String("token", "", "Bearer token for the remote server")
	dbPath := flag.String("db", "", "Path to a local SQLite database (overrides config)")
	project := flag.String("project", "", "Project name or id (default from config)")

	addTitle := flag.String("add", "", "Create a node with the given title")
	deleteID := flag.String("delete", "", "Delete nodes by id; comma-separate ids for a batch delete")
	duplicateID := flag.String("duplicate", "", "Duplicate a node by id")
	linkPair := flag.String("link", "", "Link two nodes, as 'parent:child'")
	unlinkPair := flag.String("unlink", "", "Unlink two nodes, as 'parent:child'")

	focusID := flag.String("focus", "", "Print the focus set of a node: itself, its children, its ancestors")
	trailStatus := flag.String("trail", "", "Print the status trail for a status (e.g. FAILED)")
	cyclesFlag := flag.Bool("cycles", false, "Report dependency cycles in the graph")
	exportPath := flag.String("export", "", "Export the project graph to a snapshot file")
	importPath := flag.String("import", "", "Import a snapshot file into the project")
	watchFlag := flag.Bool("watch", false, "Watch a local database and print the graph on change")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: pg [options]")
		fmt.Println("\nA graph client for pentest mind maps.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("pg %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		// Non-fatal: continue with defaults
		cfg = config.DefaultConfig()
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if *token != "" {
		cfg.Server.Token = *token
	}
	if *dbPath != "" {
		cfg.Local.DatabasePath = *dbPath
	}
	projectID := cfg.ResolveProject(*project)
	if projectID == "" {
		fmt.Fprintln(os.Stderr, "Error: no project given; pass --project or set default_project in config")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	// Mutations run through the editor so undo bookkeeping and journal
	// semantics stay identical to interactive use.
	if *addTitle != "" || *deleteID != "" || *duplicateID != "" || *linkPair != "" || *unlinkPair != "" {
		if err := runMutations(ctx, store, projectID, cfg.Editor.MoveDebounce, mutationArgs{
			add: *addTitle, del: *deleteID, dup: *duplicateID,
			link: *linkPair, unlink: *unlinkPair,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *importPath != "" {
		file, err := loader.ImportFile(*importPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		n, err := loader.Restore(ctx, store, projectID, file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error after %d nodes: %v\n", n, err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d nodes, %d links\n", n, len(file.Links))
	}

	data, err := store.FetchGraph(ctx, projectID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching graph: %v\n", err)
		os.Exit(1)
	}

	if *exportPath != "" {
		if err := loader.ExportFile(*exportPath, projectID, data); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Exported %d nodes, %d links to %s\n", len(data.Nodes), len(data.Links), *exportPath)
	}

	g := graph.New()
	g.Reconcile(data.Nodes, data.Links)
	snap := g.Snapshot()

	switch {
	case *focusID != "":
		printHighlight(snap, traverse.FocusClosure(snap, *focusID))
	case *trailStatus != "":
		status, err := model.ParseStatus(*trailStatus)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		printHighlight(snap, traverse.TraceStatus(snap, status))
	case *cyclesFlag:
		warnings := analysis.DetectCycles(snap, analysis.DefaultMaxCycles)
		fmt.Println(analysis.Summary(warnings))
		for _, w := range warnings {
			fmt.Printf("  %s\n", w)
		}
	default:
		printStats(snap)
	}

	if *watchFlag {
		if err := watchLoop(ctx, cfg, store, projectID); err != nil {
			fmt.Fprintf(os.Stderr, "Error watching: %v\n", err)
			os.Exit(1)
		}
	}
}

// openStore picks the backend: a remote HTTP server when a URL is
// configured, the local SQLite database otherwise.
func openStore(cfg config.Config) (remote.Store, func() error, error) {
	if cfg.Server.URL != "" {
		s := remote.NewHTTPStore(cfg.Server.URL, remote.WithToken(cfg.Server.Token))
		return s, func() error { return nil }, nil
	}
	s, err := datasource.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

type mutationArgs struct {
	add, del, dup, link, unlink string
}

func runMutations(ctx context.Context, store remote.Store, projectID string, moveDebounce time.Duration, args mutationArgs) error {
	ed := editor.New(projectID, store, editor.WithMoveDebounce(moveDebounce))
	defer ed.Close()
	if err := ed.Refresh(ctx); err != nil {
		return fmt.Errorf("fetch graph: %w", err)
	}

	if args.add != "" {
		n, err := ed.AddNode(ctx, model.NodeFields{Title: args.add})
		if err != nil {
			return fmt.Errorf("add node: %w", err)
		}
		fmt.Printf("Created %s (%s)\n", n.ID, n.Title)
	}
	if args.dup != "" {
		n, err := ed.DuplicateNode(ctx, args.dup)
		if err != nil {
			return fmt.Errorf("duplicate node: %w", err)
		}
		fmt.Printf("Created %s (%s)\n", n.ID, n.Title)
	}
	if args.link != "" {
		src, dst, err := splitPair(args.link)
		if err != nil {
			return err
		}
		if err := ed.LinkNodes(src, dst); err != nil {
			return fmt.Errorf("link: %w", err)
		}
		fmt.Printf("Linked %s → %s\n", src, dst)
	}
	if args.unlink != "" {
		src, dst, err := splitPair(args.unlink)
		if err != nil {
			return err
		}
		if err := ed.UnlinkNodes(src, dst); err != nil {
			return fmt.Errorf("unlink: %w", err)
		}
		fmt.Printf("Unlinked %s → %s\n", src, dst)
	}
	if args.del != "" {
		ids := splitIDs(args.del)
		if len(ids) == 1 {
			if err := ed.DeleteNode(ctx, ids[0]); err != nil {
				return fmt.Errorf("delete node: %w", err)
			}
			fmt.Printf("Deleted %s\n", ids[0])
		} else {
			// Several ids go through the batch endpoint in one request.
			if err := store.BulkDeleteNodes(ctx, projectID, ids); err != nil {
				return fmt.Errorf("bulk delete: %w", err)
			}
			fmt.Printf("Deleted %d nodes\n", len(ids))
		}
	}

	// Flush optimistic link/unlink settlements before reporting.
	ed.Settle()
	return nil
}

// splitIDs breaks a comma-separated id list, dropping empty entries.
func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func splitPair(s string) (string, string, error) {
	src, dst, ok := strings.Cut(s, ":")
	if !ok || src == "" || dst == "" {
		return "", "", fmt.Errorf("expected 'parent:child', got %q", s)
	}
	return src, dst, nil
}

func printHighlight(snap *graph.Snapshot, h traverse.Highlight) {
	if h.Empty() {
		fmt.Println("No matching nodes")
		return
	}
	var ids []string
	for _, n := range snap.Nodes() {
		if h.HasNode(n.ID) {
			ids = append(ids, n.ID)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		n, _ := snap.Node(id)
		fmt.Printf("%s  [%s]  %s\n", n.ID, n.Status, n.Title)
	}
	fmt.Printf("%d nodes, %d edges highlighted\n", len(h.Nodes), len(h.Edges))
}

func printStats(snap *graph.Snapshot) {
	counts := make(map[model.Status]int)
	for _, n := range snap.Nodes() {
		counts[n.Status]++
	}
	fmt.Printf("%d nodes, %d edges\n", snap.NodeCount(), snap.EdgeCount())
	for _, s := range model.AllStatuses {
		if counts[s] > 0 {
			fmt.Printf("  %-15s %d\n", s, counts[s])
		}
	}
}

// watchLoop re-fetches and reprints the graph whenever the backing store
// changes: websocket notifications against a remote server, file watching
// against the local SQLite database.
func watchLoop(ctx context.Context, cfg config.Config, store remote.Store, projectID string) error {
	var changed <-chan struct{}

	if cfg.Server.URL != "" {
		n, err := remote.NewNotifier(cfg.Server.URL, projectID, cfg.Server.Token)
		if err != nil {
			return err
		}
		if err := n.Start(ctx); err != nil {
			return err
		}
		defer n.Close()

		ch := make(chan struct{})
		go func() {
			defer close(ch)
			for range n.Events() {
				select {
				case ch <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}()
		changed = ch
	} else {
		w, err := watcher.New(cfg.DatabasePath())
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()
		changed = w.Changed()
	}

	fmt.Println("Watching for changes (Ctrl-C to stop)...")
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changed:
			if !ok {
				return nil
			}
			data, err := store.FetchGraph(ctx, projectID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "refetch failed: %v\n", err)
				continue
			}
			g := graph.New()
			g.Reconcile(data.Nodes, data.Links)
			printStats(g.Snapshot())
		}
	}
}
