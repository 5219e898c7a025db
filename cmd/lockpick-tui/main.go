package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/hperssn/lockpick/internal/clock"
	"github.com/hperssn/lockpick/internal/domain"
	"github.com/hperssn/lockpick/internal/notify"
	"github.com/hperssn/lockpick/internal/sound"
)

func main() {
	mode := flag.String("mode", "circle", "game type: circle or skillcheck")
	difficulty := flag.String("difficulty", "medium", "easy, medium or hard")
	pins := flag.Int("pins", domain.DefaultPins, "pins to pick in circle mode")
	attempts := flag.Int("attempts", domain.DefaultMaxAttempts, "attempts before the lockpick breaks")
	host := flag.String("host", "", "host URL to notify of progress and results")
	logPath := flag.String("log", "", "write logs to this file")
	flag.Parse()

	// the screen owns stdout and stderr while the game runs
	log.SetOutput(io.Discard)
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	var notifier notify.Notifier = notify.Nop{}
	if *host != "" {
		notifier = notify.NewHTTPNotifier(*host, 2*time.Second)
	}

	player := sound.NewPlayer()
	if err := player.Initialize(); err != nil {
		log.Printf("audio disabled: %v", err)
	}
	defer player.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	session := domain.NewSession("", "local", domain.StartConfig{
		GameType:    *mode,
		Difficulty:  *difficulty,
		Pins:        *pins,
		MaxAttempts: *attempts,
	}, clock.System, rand.New(rand.NewSource(time.Now().UnixNano())))

	g := newGame(screen, session, gameOptions{
		Clock:    clock.System,
		Notifier: notifier,
		Sound:    player,
	})
	if err := g.start(); err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	g.run()
}
