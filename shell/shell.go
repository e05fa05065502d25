package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/fPolic/Connect4-MPI/board"
	"github.com/fPolic/Connect4-MPI/config"
	"github.com/fPolic/Connect4-MPI/coordinator"
)

var (
	errNoData            = errors.New("no data in line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errExit              = errors.New("exit requested")
)

// CPU picks and plays the computer's column.
type CPU interface {
	PlayCPUMove(ctx context.Context, b *board.Board) (*coordinator.SearchResult, error)
}

type ShellController struct {
	l   *readline.Instance
	out io.Writer

	config *config.Config
	cpu    CPU

	board    *board.Board
	gameOver bool
	last     *coordinator.SearchResult
	color    bool
}

type shellcmd struct {
	cmd     string
	args    []string
	options map[string]string
}

type Response struct {
	message string
	// final is set when the move that produced the response ended the game.
	final bool
}

// lineReader is the part of readline.Instance the loop needs.
type lineReader interface {
	Readline() (string, error)
}

func msg(message string) *Response {
	return &Response{message: message}
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

// NewShellController loads the starting position and writes to out.
func NewShellController(cfg *config.Config, cpu CPU, out io.Writer) (*ShellController, error) {
	sc := &ShellController{config: cfg, cpu: cpu, out: out}
	if f, ok := out.(*os.File); ok {
		sc.color = readline.IsTerminal(int(f.Fd()))
	}
	if err := sc.reset(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *ShellController) reset() error {
	b, err := initialBoard(sc.config)
	if err != nil {
		return err
	}
	sc.board = b
	sc.gameOver = b.IsGameOver()
	sc.last = nil
	return nil
}

func initialBoard(cfg *config.Config) (*board.Board, error) {
	var opts []board.Option
	if cfg.GetBool(config.ConfigVerticalWins) {
		opts = append(opts, board.WithVerticalWins(true))
	}
	if path := cfg.GetString(config.ConfigLayoutPath); path != "" {
		return board.LoadLayout(path, opts...)
	}
	return board.NewEmpty(cfg.GetInt(config.ConfigRows), cfg.GetInt(config.ConfigColumns), opts...)
}

func (sc *ShellController) Board() *board.Board { return sc.board }

func (sc *ShellController) showError(err error) {
	showMessage("Error: "+err.Error(), sc.out)
}

// extractFields splits a line into a command, positional arguments and
// -key value options.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := &shellcmd{cmd: fields[0], options: map[string]string{}}
	for i := 1; i < len(fields); i++ {
		if strings.HasPrefix(fields[i], "-") && len(fields[i]) > 1 {
			if i+1 >= len(fields) {
				return nil, errWrongOptionSyntax
			}
			cmd.options[fields[i][1:]] = fields[i+1]
			i++
			continue
		}
		cmd.args = append(cmd.args, fields[i])
	}
	return cmd, nil
}

// Execute runs one line of input.
func (sc *ShellController) Execute(ctx context.Context, line string) (*Response, error) {
	cmd, err := extractFields(strings.TrimSpace(line))
	if err != nil {
		return nil, err
	}
	log.Debug().Str("cmd", cmd.cmd).Strs("args", cmd.args).Msg("shell-command")

	switch cmd.cmd {
	case "new":
		return sc.newGame()
	case "show":
		return sc.show(cmd)
	case "last":
		return sc.lastSearch()
	case "help":
		return sc.help()
	case "exit", "bye", "quit":
		return nil, errExit
	}
	if col, ok := parseColumn(cmd.cmd); ok {
		return sc.play(ctx, col)
	}
	return nil, fmt.Errorf("unrecognized command %q; type help", cmd.cmd)
}

// Loop reads commands until the game ends, or until exit, EOF or an
// interrupt on an empty line.
func (sc *ShellController) Loop(ctx context.Context) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mconnect4>\033[0m ",
		HistoryFile:     "/tmp/connect4_readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",
		AutoComplete:    NewShellCompleter(sc),

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return err
	}
	sc.l = l
	sc.out = l.Stdout()
	defer l.Close()

	showMessage(sc.board.ToDisplayText(sc.color), sc.out)
	return sc.loop(ctx, l)
}

func (sc *ShellController) loop(ctx context.Context, r lineReader) error {
	for {
		line, err := r.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		resp, err := sc.Execute(ctx, line)
		if errors.Is(err, errExit) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sc.showError(err)
			continue
		}
		if resp == nil {
			continue
		}
		if resp.message != "" {
			showMessage(resp.message, sc.out)
		}
		if resp.final {
			log.Info().Int("moves", sc.board.MoveCount()).Msg("game-ended")
			break
		}
	}
	log.Debug().Msg("exiting readline loop")
	return nil
}
