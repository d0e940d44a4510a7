package console

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hookedPrompter answers prompts from a queue and records the history it
// is given.
type hookedPrompter struct {
	answers []string
	history []string
	closed  bool
}

func (p *hookedPrompter) PromptInput(prompt string) (string, error) {
	if len(p.answers) == 0 {
		return "", io.EOF
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func (p *hookedPrompter) PromptConfirm(prompt string) (bool, error) {
	a, err := p.PromptInput(prompt)
	return a == "y", err
}

func (p *hookedPrompter) SetHistory(history []string) { p.history = append([]string(nil), history...) }
func (p *hookedPrompter) AppendHistory(command string) { p.history = append(p.history, command) }
func (p *hookedPrompter) ClearHistory() { p.history = nil }
func (p *hookedPrompter) SetWordCompleter(WordCompleter) {}

func (p *hookedPrompter) Close() error {
	p.closed = true
	return nil
}

func TestHistory(t *testing.T) {
	dir, err := ioutil.TempDir("", "console-")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	var out bytes.Buffer
	p := &hookedPrompter{answers: []string{"1", "1", " 2 ", ""}}
	s := New(Config{DataDir: dir, Prompter: p, Printer: &out})
	for i := 0; i < 4; i++ {
		_, err := s.PromptInput("> ")
		require.NoError(t, err)
	}
	_, err = s.PromptInput("> ")
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, []string{"1", "2"}, p.history)
	require.NoError(t, s.Close())
	assert.True(t, p.closed)

	content, err := ioutil.ReadFile(filepath.Join(dir, HistoryFile))
	require.NoError(t, err)
	assert.Equal(t, "1\n2", string(content))

	// a new session starts with the saved history
	p = &hookedPrompter{}
	s = New(Config{DataDir: dir, Prompter: p, Printer: &out})
	assert.Equal(t, []string{"1", "2"}, p.history)

	s.ClearHistory()
	assert.Empty(t, p.history)
	assert.Contains(t, out.String(), "history file deleted")
	_, err = os.Stat(filepath.Join(dir, HistoryFile))
	assert.True(t, os.IsNotExist(err))
}

func TestAutoComplete(t *testing.T) {
	s := New(Config{Prompter: &hookedPrompter{}, Printer: ioutil.Discard})
	_, found, _ := s.AutoCompleteInput("q", 1)
	assert.Equal(t, []string{"quit"}, found)
	_, found, _ = s.AutoCompleteInput("1", 1)
	assert.Empty(t, found)
	assert.Equal(t, ioutil.Discard, s.Printer())
}

func TestPromptConfirm(t *testing.T) {
	p := &hookedPrompter{answers: []string{"y", "n"}}
	s := New(Config{Prompter: p, Printer: ioutil.Discard})

	yes, err := s.PromptConfirm("quit?")
	require.NoError(t, err)
	assert.True(t, yes)
	yes, err = s.PromptConfirm("quit?")
	require.NoError(t, err)
	assert.False(t, yes)
	assert.Empty(t, p.history)
}
