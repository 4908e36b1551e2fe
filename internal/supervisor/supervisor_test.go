package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/snakehand/zcubes/internal/params"
	"github.com/snakehand/zcubes/internal/reporter"
)

func TestRunPlainCompletesOverSmallRange(t *testing.T) {
	sp, err := params.Parse([]string{"2", "6", "2", "500", "2000", "1000000"})
	if err != nil {
		t.Fatal(err)
	}
	rep := reporter.NewFileReporter(reporter.Config{Quiet: true})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Run(ctx, sp, rep); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestRunPinnedCompletesOverSmallRange(t *testing.T) {
	sp, err := params.Parse([]string{"2", "6", "5x7", "50", "2000", "1000000"})
	if err != nil {
		t.Fatal(err)
	}
	rep := reporter.NewFileReporter(reporter.Config{Quiet: true})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Run(ctx, sp, rep); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestRunHonorsCancelledContext(t *testing.T) {
	sp, err := params.Parse([]string{"2", "6", "2", "1000000000", "2000", "1000000"})
	if err != nil {
		t.Fatal(err)
	}
	rep := reporter.NewFileReporter(reporter.Config{Quiet: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Run(ctx, sp, rep); err != nil {
		t.Fatalf("Run should return nil on an already-cancelled context, got %v", err)
	}
}
