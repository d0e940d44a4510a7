// Package console drives interactive simulations from a terminal.
package console

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-colorable"
)

// HistoryFile is the file within the data directory that stores the input
// history across sessions.
const HistoryFile = "history"

var commands = []string{"quit"}

// Config holds the settings of a Session.
type Config struct {
	DataDir  string       // history is kept here, none if empty
	Prompter UserPrompter // defaults to Stdin
	Printer  io.Writer    // defaults to a colorable stdout
}

// Session reads successor choices from the user and remembers them.
type Session struct {
	prompter UserPrompter
	histPath string
	history  []string
	printer  io.Writer
}

// New starts a session and loads the history.
func New(config Config) *Session {
	if config.Prompter == nil {
		config.Prompter = Stdin()
	}
	if config.Printer == nil {
		config.Printer = colorable.NewColorableStdout()
	}
	s := &Session{
		prompter: config.Prompter,
		printer:  config.Printer,
	}
	if config.DataDir != "" {
		s.histPath = filepath.Join(config.DataDir, HistoryFile)
		if content, err := ioutil.ReadFile(s.histPath); err == nil && len(content) > 0 {
			s.history = strings.Split(string(content), "\n")
		}
	}
	s.prompter.SetHistory(s.history)
	s.prompter.SetWordCompleter(s.AutoCompleteInput)
	return s
}

// Printer returns where simulation output goes.
func (s *Session) Printer() io.Writer {
	return s.printer
}

// PromptInput asks for a line and records it in the history.
func (s *Session) PromptInput(prompt string) (string, error) {
	input, err := s.prompter.PromptInput(prompt)
	if err != nil {
		return "", err
	}
	if command := strings.TrimSpace(input); command != "" && (len(s.history) == 0 || command != s.history[len(s.history)-1]) {
		s.history = append(s.history, command)
		s.prompter.AppendHistory(command)
	}
	return input, nil
}

// PromptConfirm asks a yes/no question. The answer is not recorded.
func (s *Session) PromptConfirm(prompt string) (bool, error) {
	return s.prompter.PromptConfirm(prompt)
}

// AutoCompleteInput completes the session commands.
func (s *Session) AutoCompleteInput(line string, pos int) (string, []string, string) {
	if len(line) == 0 || pos == 0 {
		return "", nil, ""
	}
	var found []string
	for _, c := range commands {
		if strings.HasPrefix(c, line[:pos]) {
			found = append(found, c)
		}
	}
	return "", found, line[pos:]
}

// ClearHistory drops the in-memory and the on-disk history.
func (s *Session) ClearHistory() {
	s.history = nil
	s.prompter.ClearHistory()
	if s.histPath == "" {
		return
	}
	if err := os.Remove(s.histPath); err != nil {
		fmt.Fprintln(s.printer, "can't delete history file:", err)
	} else {
		fmt.Fprintln(s.printer, "history file deleted")
	}
}

// Close saves the history.
func (s *Session) Close() error {
	if s.histPath != "" {
		if err := ioutil.WriteFile(s.histPath, []byte(strings.Join(s.history, "\n")), 0600); err != nil {
			return err
		}
		if err := os.Chmod(s.histPath, 0600); err != nil {
			return err
		}
	}
	return s.prompter.Close()
}
