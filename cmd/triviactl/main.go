// Command triviactl is an operator tool for inspecting the trivia record
// store without going through the running server: it opens the same
// SQLite database read-only and prints colorized summaries of games and
// their rosters.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/mrecabarren/trivia-server/internal/domain"
	"github.com/mrecabarren/trivia-server/internal/store"
)

func main() {
	dbPath := flag.String("db", "./trivia.db", "path to the sqlite record store")
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	s, err := store.OpenReadOnly(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("triviactl: %v", err))
		os.Exit(1)
	}
	defer s.Close()

	ctx := context.Background()
	switch flag.Arg(0) {
	case "list":
		err = listGames(ctx, s)
	case "show":
		if flag.NArg() < 2 {
			usage()
			os.Exit(1)
		}
		err = showGame(ctx, s, flag.Arg(1))
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("triviactl: %v", err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: triviactl [-db path] <list|show> [game_id]")
}

func listGames(ctx context.Context, s *store.Store) error {
	games, err := s.ListOpenGames(ctx)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		fmt.Println(color.YellowString("no open games"))
		return nil
	}
	bold := color.New(color.Bold)
	for _, g := range games {
		bold.Printf("#%d  %s\n", g.ID, g.Name)
		fmt.Printf("    creator=%d players=%d question_time=%ds answer_time=%ds\n",
			g.CreatorID, g.PlayersCount(), g.QuestionTime, g.AnswerTime)
	}
	return nil
}

func showGame(ctx context.Context, s *store.Store, idArg string) error {
	var id int64
	if _, err := fmt.Sscanf(idArg, "%d", &id); err != nil {
		return fmt.Errorf("invalid game id %q", idArg)
	}

	g, err := s.GetGame(ctx, id)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	bold.Printf("#%d  %s\n", g.ID, g.Name)
	fmt.Printf("creator=%d open=%v rounds_number=%v\n", g.CreatorID, g.IsOpen(), derefInt(g.RoundsNumber))

	weights, err := s.AllPlayerFaultWeights(ctx, id)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	for _, p := range g.Players {
		weight := weights[p.ID]
		if domain.IsDisqualified(weight) {
			red.Printf("  %d  %-16s  faults=%d  DISQUALIFIED\n", p.ID, p.Username, weight)
		} else {
			green.Printf("  %d  %-16s  faults=%d\n", p.ID, p.Username, weight)
		}
	}

	rounds, err := s.RoundsCount(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("rounds started: %d\n", rounds)
	return nil
}

func derefInt(v *int) any {
	if v == nil {
		return "unlimited"
	}
	return *v
}
