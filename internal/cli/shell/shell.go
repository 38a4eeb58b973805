// Package shell is the interactive front end of a running node.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rudransh-shrivastava/peer-flood/internal/node"
	"github.com/rudransh-shrivastava/peer-flood/internal/store"
	"github.com/schollz/progressbar/v3"
)

const usage = `Commands:
  search <keyword>    search the overlay for a file
  download <reply>    download the file from a numbered reply
  replies             show the replies of the latest search
  neighbors           show this node's neighbors
  history             show past downloads and searches
  exit                leave the overlay and quit`

// Node is the part of a running node the shell drives.
type Node interface {
	Search(keyword string) (<-chan node.SearchOutcome, error)
	Download(ctx context.Context, index int, progress io.Writer) (node.DownloadResult, error)
	Replies() []node.Reply
	Neighbors() []string
	History() store.HistoryRepository
	Exit(ctx context.Context) error
}

type Shell struct {
	node Node
	out  *lockedWriter
	wg   sync.WaitGroup
}

func New(n Node, out io.Writer) *Shell {
	return &Shell{node: n, out: &lockedWriter{w: out}}
}

// Run reads commands from in until exit or end of input. Either way the
// node leaves the overlay before Run returns.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	s.println(usage)
	for {
		select {
		case <-ctx.Done():
			return s.exit(context.Background())
		case line, ok := <-lines:
			if !ok {
				return s.exit(ctx)
			}
			if exit := s.RunLine(ctx, line); exit {
				return s.exit(ctx)
			}
		}
	}
}

// RunLine executes one command and reports whether the shell should exit.
func (s *Shell) RunLine(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "search":
		if len(args) != 1 {
			s.println("Usage: search <keyword>")
			return false
		}
		s.search(args[0])
	case "download":
		if len(args) != 1 {
			s.println("Usage: download <replyNum>")
			return false
		}
		index, err := strconv.Atoi(args[0])
		if err != nil {
			s.println("Reply number must be an integer.")
			return false
		}
		s.download(ctx, index)
	case "replies":
		s.printReplies(s.node.Replies())
	case "neighbors":
		s.printNeighbors()
	case "history":
		s.printHistory(ctx)
	case "help":
		s.println(usage)
	case "exit", "quit":
		return true
	default:
		s.printf("Unknown command: %s\n", cmd)
	}
	return false
}

// Wait blocks until every running search has reported its outcome.
func (s *Shell) Wait() {
	s.wg.Wait()
}

func (s *Shell) exit(ctx context.Context) error {
	err := s.node.Exit(ctx)
	s.wg.Wait()
	return err
}

func (s *Shell) search(keyword string) {
	out, err := s.node.Search(keyword)
	if err != nil {
		s.printf("Cannot search: %v\n", err)
		return
	}
	s.printf("Searching for %s...\n", keyword)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		outcome, ok := <-out
		if !ok {
			return
		}
		switch outcome.Status {
		case node.SearchFound:
			s.printf("File found at hop count: %d\n", outcome.HopCounts[len(outcome.HopCounts)-1])
			s.printReplies(outcome.Replies)
			s.println("Which reply would you like to choose to download? Please enter the command download <replyNum>")
		case node.SearchNoResults:
			s.printf("Search terminated at hop count %d with no results found.\n", outcome.HopCounts[len(outcome.HopCounts)-1])
		case node.SearchSuperseded:
			s.printf("Search for %s was cancelled.\n", outcome.Keyword)
		}
	}()
}

func (s *Shell) download(ctx context.Context, index int) {
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(s.out),
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetRenderBlankState(false),
	)
	result, err := s.node.Download(ctx, index, bar)
	_ = bar.Finish()
	s.println("")

	switch {
	case errors.Is(err, node.ErrNoSuchReply):
		s.println("Cannot download file. No such reply has been received.")
	case errors.Is(err, node.ErrAlreadyHave):
		s.println("Cannot download file. You already have this file.")
	case err != nil:
		s.printf("Error downloading file: %v\n", err)
	default:
		s.printf("You selected reply %d: %s\n", index, result.Reply)
		s.printf("Downloaded %s (%d bytes) from %s\n", result.Reply.Record.Name, result.Bytes, result.Reply.Source)
	}
}

func (s *Shell) printReplies(replies []node.Reply) {
	var b strings.Builder
	if len(replies) == 1 {
		b.WriteString("1 reply was received.\n")
	} else {
		fmt.Fprintf(&b, "%d replies were received.\n", len(replies))
	}
	for i, r := range replies {
		fmt.Fprintf(&b, "%d: %s\n", i+1, r)
	}
	s.printf("%s", b.String())
}

func (s *Shell) printNeighbors() {
	neighbors := s.node.Neighbors()
	if len(neighbors) == 0 {
		s.println("No neighbors.")
		return
	}
	s.printf("Neighbors: %s\n", strings.Join(neighbors, " "))
}

func (s *Shell) printHistory(ctx context.Context) {
	history := s.node.History()
	if history == nil {
		s.println("History is disabled.")
		return
	}

	downloads, err := history.Downloads(ctx)
	if err != nil {
		s.printf("Error reading history: %v\n", err)
		return
	}
	searches, err := history.Searches(ctx)
	if err != nil {
		s.printf("Error reading history: %v\n", err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Downloads (%d):\n", len(downloads))
	for _, d := range downloads {
		fmt.Fprintf(&b, "  %s [%s] from %s, %d bytes\n", d.FileName, d.Keyword, d.Source, d.Bytes)
	}
	fmt.Fprintf(&b, "Searches (%d):\n", len(searches))
	for _, sr := range searches {
		fmt.Fprintf(&b, "  %s: %s after hop counts %s, %d replies\n", sr.Keyword, sr.Status, sr.Attempts, sr.Replies)
	}
	s.printf("%s", b.String())
}

func (s *Shell) println(msg string) {
	s.printf("%s\n", msg)
}

func (s *Shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

// lockedWriter serializes output from the prompt and from search
// goroutines reporting asynchronously.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
