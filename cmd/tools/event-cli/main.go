package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/voxel-world/internal/eventbus"
)

const (
	defaultNATSURL = "nats://127.0.0.1:4222"
	timeFormat     = "15:04:05"
)

func main() {
	var (
		natsURL    = flag.String("url", defaultNATSURL, "NATS server URL")
		stream     = flag.String("stream", "WORLD", "JetStream stream name")
		command    = flag.String("cmd", "tail", "Command: tail, stats")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		sources    = flag.String("sources", "", "World sources filter (comma-separated)")
		limit      = flag.Int("limit", 100, "Maximum number of events (tail)")
		follow     = flag.Bool("follow", false, "Follow new events (like tail -f)")
		window     = flag.Duration("for", 10*time.Second, "Collection window (stats)")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	filter := eventbus.Filter{
		Types:   parseStringList(*eventTypes),
		Sources: parseStringList(*sources),
	}

	switch *command {
	case "tail":
		if err := tailEvents(ctx, bus, filter, *limit, *follow, os.Stdout); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "stats":
		if err := showStats(ctx, bus, filter, *window, os.Stdout); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats")
		os.Exit(1)
	}
}

// tailEvents выводит события по мере поступления
func tailEvents(ctx context.Context, bus eventbus.EventBus, filter eventbus.Filter, limit int, follow bool, out io.Writer) error {
	fmt.Fprintf(out, "🎬 Tailing events (limit: %d, follow: %v)\n", limit, follow)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		count int
	)
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		if !follow && count >= limit {
			return
		}
		fmt.Fprintln(out, formatEvent(ev))
		count++
		if !follow && count >= limit {
			cancel()
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "\n📊 Total events: %d\n", count)
	return nil
}

// showStats считает события по типам за окно наблюдения
func showStats(ctx context.Context, bus eventbus.EventBus, filter eventbus.Filter, window time.Duration, out io.Writer) error {
	fmt.Fprintf(out, "📊 Event statistics (window: %s)\n", window)

	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	var (
		mu     sync.Mutex
		counts = make(map[string]int)
	)
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		counts[ev.EventType]++
		mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	printStats(out, counts)
	return nil
}

func printStats(out io.Writer, counts map[string]int) {
	types := make([]string, 0, len(counts))
	total := 0
	for t, n := range counts {
		types = append(types, t)
		total += n
	}
	sort.Strings(types)

	for _, t := range types {
		fmt.Fprintf(out, "  %-16s %d\n", t, counts[t])
	}
	fmt.Fprintf(out, "  %-16s %d\n", "total", total)
}

// formatEvent печатает событие одной строкой с разобранной полезной нагрузкой
func formatEvent(ev *eventbus.Envelope) string {
	head := fmt.Sprintf("[%s] %s [%s] %s",
		ev.Timestamp.Local().Format(timeFormat), ev.Source, ev.EventType, ev.CorrelationID)

	switch ev.EventType {
	case eventbus.EventBlockAdded, eventbus.EventBlockRemoved:
		var p eventbus.BlockPayload
		if err := eventbus.DecodePayload(ev, &p); err != nil {
			return head + "  ⚠️ " + err.Error()
		}
		return fmt.Sprintf("%s  Block: (%d,%d,%d) %s", head, p.Position[0], p.Position[1], p.Position[2], p.Type)

	case eventbus.EventChunkLoaded, eventbus.EventChunkUnloaded, eventbus.EventStructureBuilt:
		var p eventbus.ChunkPayload
		if err := eventbus.DecodePayload(ev, &p); err != nil {
			return head + "  ⚠️ " + err.Error()
		}
		blocks := 0
		for _, positions := range p.Blocks {
			blocks += len(positions)
		}
		return fmt.Sprintf("%s  Chunk: (%d,%d) blocks=%d", head, p.Chunk[0], p.Chunk[1], blocks)
	}
	return head
}

// parseStringList разбирает список через запятую
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
