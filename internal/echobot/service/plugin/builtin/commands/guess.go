package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin/builtin/infra"
	"github.com/kiosk404/echobot/internal/echobot/service/session"
	"github.com/kiosk404/echobot/internal/echobot/service/storage"
	"github.com/kiosk404/echobot/pkg/logger"
)

const (
	GuessName = "guess"

	DefaultGuessTimeout = 30 * time.Second

	guessNamespace = "guess"
)

// GuessConfig configures the guessing game.
type GuessConfig struct {
	// Secret is the number to guess. Zero picks a random number per game.
	Secret  int
	Timeout time.Duration
}

// GuessScore is the per-user record kept when storage is available.
type GuessScore struct {
	Wins     int `json:"wins"`
	Attempts int `json:"attempts"`
}

// Guess runs a number guessing game that reads the player's follow-up
// messages through the session manager.
type Guess struct {
	plugin.Base
	cfg GuessConfig

	sessions *session.Manager
	kv       storage.KV
}

func NewGuess(cfg GuessConfig) *Guess {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGuessTimeout
	}
	return &Guess{cfg: cfg}
}

func (*Guess) Meta() plugin.Metadata {
	m := plugin.NewMetadata(GuessName, "Guessing game")
	m.Commands = []plugin.CommandInfo{{Name: "guess", Description: "guess a number between 1 and 100"}}
	return m
}

func (*Guess) Dependencies() []plugin.Dependency {
	return []plugin.Dependency{plugin.Required(infra.SessionName), plugin.Optional(infra.StorageName)}
}

func (g *Guess) Build(_ context.Context, b *plugin.AppBuilder) error {
	mgr, err := plugin.Lookup[*session.Manager](b.Resources())
	if err != nil {
		return err
	}
	g.sessions = mgr
	if kv, ok := plugin.Get[storage.KV](b.Resources()); ok {
		g.kv = kv
	}
	return nil
}

func (*Guess) Matches(ev *event.Context) bool { return isCommand(ev, "guess") }

// Handle plays one game to completion. It returns when the player wins,
// types "exit" or stays silent for the configured timeout.
func (g *Guess) Handle(ctx context.Context, ev *event.Context) (*plugin.HandleResult, error) {
	secret := g.cfg.Secret
	if secret == 0 {
		secret = rand.IntN(100) + 1
	}
	if err := ev.Reply(ctx, "I'm thinking of a number between 1 and 100. Try to guess it! (Type 'exit' to quit)"); err != nil {
		return nil, err
	}

	key := ev.SessionKey()
	attempts := 0
	for {
		next, err := g.sessions.Wait(ctx, key, g.cfg.Timeout)
		if errors.Is(err, session.ErrTimeout) {
			return plugin.Blocked(), ev.Reply(ctx, "Time's up! Game over.")
		}
		if err != nil {
			return nil, err
		}

		text := strings.TrimSpace(next.Text)
		if strings.EqualFold(text, "exit") {
			return plugin.Blocked(), next.Reply(ctx, "Game cancelled.")
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			if err := next.Reply(ctx, "Please enter a valid number."); err != nil {
				return nil, err
			}
			continue
		}

		attempts++
		var reply string
		switch {
		case n < secret:
			reply = "Too low! Try again."
		case n > secret:
			reply = "Too high! Try again."
		default:
			reply = "🎉 You guessed it! You win!"
			if score, ok := g.record(ctx, ev.UserID, attempts); ok {
				reply += fmt.Sprintf(" (%d attempts, %d wins so far)", attempts, score.Wins)
			}
		}
		if err := next.Reply(ctx, reply); err != nil {
			return nil, err
		}
		if n == secret {
			return plugin.Blocked(), nil
		}
	}
}

// Score returns the stored record of a user.
func (g *Guess) Score(ctx context.Context, userID int64) (GuessScore, error) {
	var score GuessScore
	if g.kv == nil {
		return score, nil
	}
	_, err := storage.GetJSON(ctx, g.kv, guessNamespace, strconv.FormatInt(userID, 10), &score)
	return score, err
}

func (g *Guess) record(ctx context.Context, userID int64, attempts int) (GuessScore, bool) {
	if g.kv == nil {
		return GuessScore{}, false
	}
	score, err := g.Score(ctx, userID)
	if err != nil {
		logger.Warn("[Guess] read score of %d: %v", userID, err)
		return score, false
	}
	score.Wins++
	score.Attempts += attempts
	if err := storage.SetJSON(ctx, g.kv, guessNamespace, strconv.FormatInt(userID, 10), score); err != nil {
		logger.Warn("[Guess] save score of %d: %v", userID, err)
		return score, false
	}
	return score, true
}
