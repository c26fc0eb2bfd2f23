// Command simulate plays a short cooperative game between two bots over the
// in-memory sync backend and prints each turn's resolution. Useful as a
// smoke test and as a demonstration of the engine's moving parts.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/okian/mouton/internal/adapters/sync/memory"
	app "github.com/okian/mouton/internal/app"
	"github.com/okian/mouton/internal/config"
	"github.com/okian/mouton/internal/domain/model"
	"github.com/okian/mouton/internal/domain/types"
	"github.com/okian/mouton/pkg/logger"
)

const resolutionWait = 3 * time.Second

// Bots answer from a tiny shared vocabulary so matches happen naturally.
var vocabulary = []string{"chat", "lune", "pizza", "soleil", "mer"}

func main() {
	turns := flag.Int("turns", 5, "number of turns to play")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	_ = logger.SetLevelString("warn")

	if err := run(*turns, *seed); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(turns int, seed int64) error {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(seed))
	cfg := config.New()

	store := memory.NewClient()

	host := app.New(app.WithSyncClient(store), app.WithPromptSeed(seed))
	if err := host.Start(ctx); err != nil {
		return err
	}
	defer host.Stop()

	guest := app.New(app.WithSyncClient(store))
	if err := guest.Start(ctx); err != nil {
		return err
	}
	defer guest.Stop()

	if _, _, err := host.CreateRoom(ctx, "DEMO", "alice-bot"); err != nil {
		return err
	}
	if _, _, err := guest.JoinRoom(ctx, "DEMO", "bruno-bot"); err != nil {
		return err
	}

	if _, err := host.StartGame(ctx); err != nil {
		return err
	}

	locale := model.Locale(cfg.Locale)
	for i := 1; i <= turns; i++ {
		snap, err := host.Snapshot(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("turn %d: %s\n", snap.Room.Turn, promptText(host, snap.Room.PromptID, locale))

		// Each bot picks a word; drawing from the same small pool keeps
		// the match rate interesting.
		if err := host.SubmitAnswer(ctx, vocabulary[rng.Intn(len(vocabulary))]); err != nil {
			return err
		}
		if err := guest.SubmitAnswer(ctx, vocabulary[rng.Intn(len(vocabulary))]); err != nil {
			return err
		}

		r, ok := awaitResolution(host.Resolutions())
		if !ok {
			return fmt.Errorf("no resolution for turn %d", i)
		}
		fmt.Printf("  %s (%q vs %q)\n", r.Outcome, r.Answers[0].Answer, r.Answers[1].Answer)

		// Bank occasionally, like a cautious pair would.
		if r.Outcome == types.OutcomeMatch && rng.Intn(3) == 0 {
			score, err := host.Secure(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("  secured: %d banked\n", score.Banked)
		}

		if i < turns {
			if _, err := host.NextTurn(ctx); err != nil {
				return err
			}
		}
	}

	snap, err := host.Snapshot(ctx)
	if err != nil {
		return err
	}
	for _, sc := range snap.Scores {
		fmt.Printf("final %s: banked=%d at-risk=%d streak=%d\n", sc.PairID, sc.Banked, sc.Temp, sc.Streak)
	}
	return nil
}

func promptText(svc *app.Service, id *uuid.UUID, locale model.Locale) string {
	if id == nil {
		return "(no prompt)"
	}
	prompt, ok := svc.Prompt(*id)
	if !ok {
		return "(unknown prompt)"
	}
	if text, ok := prompt.Text[locale]; ok {
		return text
	}
	return prompt.Text[model.LocaleFR]
}

func awaitResolution(ch <-chan types.Resolution) (types.Resolution, bool) {
	select {
	case r, ok := <-ch:
		return r, ok
	case <-time.After(resolutionWait):
		return types.Resolution{}, false
	}
}
