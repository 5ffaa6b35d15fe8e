package output

import (
	"bufio"
	"io"
	"os"
	"sync"
)

// Output defines where accepted entries go.
type Output interface {
	WriteBatch(entries [][]byte) error
}

// ConsoleOutput writes entries to a stream (stdout by default), one per line.
type ConsoleOutput struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewConsoleOutput() *ConsoleOutput {
	return NewWriterOutput(os.Stdout)
}

// NewWriterOutput writes entries to w.
func NewWriterOutput(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{w: bufio.NewWriter(w)}
}

func (c *ConsoleOutput) WriteBatch(entries [][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range entries {
		if _, err := c.w.Write(entry); err != nil {
			return err
		}
		// TCP lines already carry their newline; UDP packets may not.
		if len(entry) == 0 || entry[len(entry)-1] != '\n' {
			if err := c.w.WriteByte('\n'); err != nil {
				return err
			}
		}
	}
	return c.w.Flush()
}
