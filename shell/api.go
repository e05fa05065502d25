package shell

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fPolic/Connect4-MPI/board"
)

var errGameOver = errors.New("the game is over; type new to start again")

func parseColumn(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// play makes the human move in column and, unless that ends the game, lets
// the CPU answer.
func (sc *ShellController) play(ctx context.Context, column int) (*Response, error) {
	if sc.gameOver {
		return nil, errGameOver
	}
	if err := sc.board.Move(column, board.Player); err != nil {
		if errors.Is(err, board.ErrIllegalMove) {
			return msg("Illegal move"), nil
		}
		return nil, err
	}
	if over, text := sc.checkEnd("PLAYER wins!"); over {
		return &Response{message: text, final: true}, nil
	}

	showMessage("CPU is thinking...", sc.out)
	res, err := sc.cpu.PlayCPUMove(ctx, sc.board)
	if err != nil {
		// take the human move back so the turn can be replayed
		if uerr := sc.board.UndoMove(); uerr != nil {
			return nil, errors.Join(err, uerr)
		}
		return nil, fmt.Errorf("cpu move: %w", err)
	}
	sc.last = res
	log.Info().Int("column", res.Column).Dur("elapsed", res.Elapsed).Msg("cpu-moved")

	if over, text := sc.checkEnd("CPU wins!"); over {
		return &Response{message: fmt.Sprintf("CPU plays %d\n%s", res.Column, text), final: true}, nil
	}
	return msg(fmt.Sprintf("CPU plays %d\n%s", res.Column, sc.board.ToDisplayText(sc.color))), nil
}

// checkEnd reports whether the last move ended the game, and the text to
// show if so.
func (sc *ShellController) checkEnd(winText string) (bool, string) {
	switch {
	case sc.board.IsGameOver():
		sc.gameOver = true
		return true, sc.board.ToDisplayText(sc.color) + "\n" + winText
	case sc.board.IsFull():
		sc.gameOver = true
		return true, sc.board.ToDisplayText(sc.color) + "\nDraw."
	}
	return false, ""
}

func (sc *ShellController) newGame() (*Response, error) {
	if err := sc.reset(); err != nil {
		return nil, err
	}
	return msg(sc.board.ToDisplayText(sc.color)), nil
}

// show prints the board. -color true|false overrides terminal detection.
func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	color := sc.color
	if v, ok := cmd.options["color"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("-color: %w", err)
		}
		color = b
	}
	return msg(sc.board.ToDisplayText(color)), nil
}

func (sc *ShellController) lastSearch() (*Response, error) {
	if sc.last == nil {
		return msg("no search yet"), nil
	}
	cols := make([]int, 0, len(sc.last.Means))
	for c := range sc.last.Means {
		cols = append(cols, c)
	}
	sort.Ints(cols)

	var sb strings.Builder
	fmt.Fprintf(&sb, "played %d after %d tasks in %s\n", sc.last.Column, sc.last.Results, sc.last.Elapsed)
	for _, c := range cols {
		fmt.Fprintf(&sb, "%3d  %+.4f ± %.4f\n", c, sc.last.Means[c], sc.last.Spread[c])
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}

func (sc *ShellController) help() (*Response, error) {
	var sb strings.Builder
	usage(&sb)
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}
