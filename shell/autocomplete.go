package shell

import (
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ShellCompleter completes command names and legal columns.
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

var commandNames = []string{"new", "show", "last", "help", "exit", "bye"}

// Do implements the readline.AutoCompleter interface.
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '
	if len(fields) > 1 || (len(fields) == 1 && endsWithSpace) {
		return nil, 0
	}

	var prefix string
	if len(fields) == 1 {
		prefix = fields[0]
	}
	completions := append([]string(nil), commandNames...)
	if c.sc.board != nil && !c.sc.gameOver {
		for _, col := range c.sc.board.LegalColumns() {
			completions = append(completions, strconv.Itoa(col))
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}
