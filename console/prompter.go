package console

import (
	"fmt"
	"strings"
	"sync"

	"github.com/peterh/liner"
)

var (
	stdin     *terminalPrompter
	stdinOnce sync.Once
)

// Stdin returns the prompter reading from the terminal. It is created on
// first use since it puts the terminal into raw mode.
func Stdin() UserPrompter {
	stdinOnce.Do(func() { stdin = newTerminalPrompter() })
	return stdin
}

// UserPrompter defines the methods needed by the console to prompt the user
// for various types of inputs.
type UserPrompter interface {
	// PromptInput displays the given prompt to the user and requests some
	// textual data to be entered, returning the input of the user.
	PromptInput(prompt string) (string, error)

	// PromptConfirm displays the given prompt to the user and requests a
	// boolean choice to be made, returning that choice.
	PromptConfirm(prompt string) (bool, error)

	SetHistory(history []string)

	AppendHistory(command string)

	ClearHistory()

	SetWordCompleter(completer WordCompleter)

	Close() error
}

// WordCompleter takes the currently edited line with the cursor position and
// returns the completion candidates for the partial word to be completed.
type WordCompleter func(line string, pos int) (string, []string, string)

type terminalPrompter struct {
	*liner.State
	supported  bool
	normalMode liner.ModeApplier
	rawMode    liner.ModeApplier
}

func newTerminalPrompter() *terminalPrompter {
	p := new(terminalPrompter)

	normalMode, _ := liner.TerminalMode()

	p.State = liner.NewLiner()
	rawMode, err := liner.TerminalMode()
	if err != nil || !liner.TerminalSupported() {
		p.supported = false
	} else {
		p.supported = true
		p.normalMode = normalMode
		p.rawMode = rawMode

		normalMode.ApplyMode()
	}
	p.SetCtrlCAborts(true)
	p.SetTabCompletionStyle(liner.TabPrints)
	return p
}

func (p *terminalPrompter) PromptInput(prompt string) (string, error) {
	if p.supported {
		p.rawMode.ApplyMode()
		defer p.normalMode.ApplyMode()
	} else {
		fmt.Print(prompt)
		prompt = ""
		defer fmt.Println()
	}
	return p.State.Prompt(prompt)
}

func (p *terminalPrompter) PromptConfirm(prompt string) (bool, error) {
	input, err := p.PromptInput(prompt + " [y/N] ")
	if len(input) > 0 && strings.ToUpper(input[:1]) == "Y" {
		return true, nil
	}
	return false, err
}

func (p *terminalPrompter) SetHistory(history []string) {
	p.State.ReadHistory(strings.NewReader(strings.Join(history, "\n")))
}

func (p *terminalPrompter) AppendHistory(command string) {
	p.State.AppendHistory(command)
}

func (p *terminalPrompter) ClearHistory() {
	p.State.ClearHistory()
}

func (p *terminalPrompter) SetWordCompleter(completer WordCompleter) {
	p.State.SetWordCompleter(liner.WordCompleter(completer))
}

func (p *terminalPrompter) Close() error {
	return p.State.Close()
}
