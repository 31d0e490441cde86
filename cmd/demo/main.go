package main

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ChuLiYu/mlfq-sim/internal/cli"
	"github.com/ChuLiYu/mlfq-sim/internal/controller"
	"github.com/ChuLiYu/mlfq-sim/internal/logging"
	"github.com/ChuLiYu/mlfq-sim/internal/report"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/demo/main.go <run|replay> [tasks]")
		os.Exit(1)
	}

	mode := os.Args[1]
	cfg, err := cli.LoadConfig("configs/default.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	workDir := filepath.Join(os.TempDir(), "mlfq-demo")
	ctrl, err := controller.NewController(controller.Config{
		Schemes:     cfg.SchemeIDs(),
		Parallelism: cfg.Simulation.Parallelism,
		TraceDir:    filepath.Join(workDir, "traces"),
		ArchivePath: filepath.Join(workDir, "archive.json"),
		Logger:      logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format),
	})
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "run":
		n := 12
		if len(os.Args) > 2 {
			if _, err := fmt.Sscanf(os.Args[2], "%d", &n); err != nil || n <= 0 {
				log.Fatalf("Invalid task count %q", os.Args[2])
			}
		}

		tasks := generateWorkload(n)
		fmt.Printf("✓ Generated %d tasks\n", len(tasks))

		batch, err := ctrl.Run(ctx, tasks)
		if err != nil {
			log.Fatalf("Simulation failed: %v", err)
		}
		fmt.Printf("✓ Batch %s finished\n\n", batch.RunID)

		if err := report.PrintComparison(os.Stdout, batch.Results); err != nil {
			log.Fatalf("Failed to print comparison: %v", err)
		}
		for _, r := range batch.Results {
			fmt.Printf("  %s: %d ticks, %d idle, %d context switches, %d demotions, %d preemptions\n",
				r.Scheme, r.Stats.Ticks, r.Stats.IdleTicks, r.Stats.ContextSwitches, r.Stats.Demotions, r.Stats.Preemptions)
		}
		status := ctrl.GetStatus()
		fmt.Printf("\n📊 Controller: %v batches, last run %v, parallelism %v\n",
			status["batches"], status["last_run_id"], status["parallelism"])
		fmt.Printf("\n💡 Run 'go run cmd/demo/main.go replay' to reload this batch from disk\n")

	case "replay":
		data, err := ctrl.LoadArchive()
		if err != nil {
			log.Fatalf("Failed to load archive: %v", err)
		}
		fmt.Printf("📦 Archive %s: %d tasks, %d schemes\n", data.RunID, len(data.Input), len(data.Results))

		counts, err := ctrl.VerifyTraces()
		if err != nil {
			log.Fatalf("Trace verification failed: %v", err)
		}
		for _, id := range ctrl.Schemes() {
			fmt.Printf("  ✓ %s trace: %d records\n", id, counts[id])
		}
		fmt.Println()

		if err := report.Write(os.Stdout, data.Results); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}

	default:
		log.Fatalf("Unknown mode %q", mode)
	}
}

// generateWorkload builds a mix of short interactive and long batch tasks
// with staggered arrivals.
func generateWorkload(n int) []types.Task {
	rng := rand.New(rand.NewPCG(42, uint64(n)))
	tasks := make([]types.Task, 0, n)
	arrival := 0
	for i := 1; i <= n; i++ {
		service := 1 + rng.IntN(4)
		if rng.IntN(3) == 0 {
			service = 10 + rng.IntN(20)
		}
		tasks = append(tasks, types.Task{
			ID:              fmt.Sprintf("T%02d", i),
			ServiceDuration: service,
			ArrivalMoment:   arrival,
			Tier:            1,
			Priority:        1 + rng.IntN(5),
		})
		arrival += rng.IntN(4)
	}
	return tasks
}
