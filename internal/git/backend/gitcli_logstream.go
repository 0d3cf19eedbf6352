package backend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

type gitLogStream struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdout io.ReadCloser
	r      *bufio.Reader
	stderr bytes.Buffer

	waitOnce sync.Once
	waitErr  error
}

func (g *gitCLI) StartLogStream(ctx context.Context, tips []string) (LogStream, error) {
	if g == nil || g.path == "" {
		return nil, fmt.Errorf("repository root not set")
	}
	args := make([]string, 0, len(tips))
	for _, tip := range tips {
		if tip = strings.TrimSpace(tip); tip != "" {
			args = append(args, tip)
		}
	}
	if len(args) == 0 {
		return &sliceStream{}, nil
	}
	return startGitLogStream(ctx, g.path, args)
}

func startGitLogStream(ctx context.Context, repoPath string, tips []string) (*gitLogStream, error) {
	// NUL-delimited records; commit message cannot contain NUL.
	const format = "%H%n%P%n%an%n%ae%n%aI%n%cn%n%ce%n%cI%n%B%x00"

	ctx, cancel := context.WithCancel(ctx)
	args := []string{
		"--no-pager",
		"-C",
		repoPath,
		"log",
		"--no-color",
		"--no-decorate",
		"--date-order",
		"--no-patch",
		// Use tformat to avoid git log adding an extra newline after each record.
		"--pretty=tformat:" + format,
	}
	args = append(args, tips...)
	args = append(args, "--")
	cmd := exec.CommandContext(ctx, "git", args...)
	var stream gitLogStream
	stream.cancel = cancel
	stream.cmd = cmd
	cmd.Stderr = &stream.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("git log stdout: %w", err)
	}
	stream.stdout = stdout
	stream.r = bufio.NewReader(stdout)
	if err := cmd.Start(); err != nil {
		cancel()
		_ = stdout.Close()
		return nil, fmt.Errorf("git log start: %w", err)
	}
	return &stream, nil
}

func (s *gitLogStream) Next() (*Commit, error) {
	rec, err := s.r.ReadBytes(0)
	if err != nil {
		if err == io.EOF {
			if waitErr := s.wait(); waitErr != nil {
				return nil, waitErr
			}
			return nil, io.EOF
		}
		return nil, err
	}
	rec = rec[:len(rec)-1]
	// git log prints a newline between commits even when the format ends with NUL,
	// so subsequent records can start with '\n'.
	rec = bytes.TrimLeft(rec, "\r\n")
	if len(rec) == 0 {
		return nil, fmt.Errorf("unexpected empty git log record")
	}
	return parseGitLogRecord(rec)
}

func (s *gitLogStream) Close() error {
	s.cancel()
	_ = s.stdout.Close()
	// Closing early kills the process; a failed exit after a complete read was
	// already reported by Next.
	_ = s.wait()
	return nil
}

func (s *gitLogStream) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	if s.waitErr == nil {
		return nil
	}
	if s.stderr.Len() > 0 {
		return fmt.Errorf("git log: %v: %s", s.waitErr, strings.TrimSpace(s.stderr.String()))
	}
	return fmt.Errorf("git log: %w", s.waitErr)
}

func parseGitLogRecord(rec []byte) (*Commit, error) {
	parts := strings.Split(string(rec), "\n")
	if len(parts) < 8 {
		return nil, fmt.Errorf("unexpected git log record: got %d lines", len(parts))
	}
	hash := strings.TrimSpace(parts[0])
	if hash == "" {
		return nil, fmt.Errorf("missing commit hash")
	}
	authorWhen, _ := time.Parse(time.RFC3339, parts[4])
	committerWhen, _ := time.Parse(time.RFC3339, parts[7])
	message := ""
	if len(parts) > 8 {
		message = strings.Join(parts[8:], "\n")
	}
	return &Commit{
		Hash:         hash,
		ParentHashes: strings.Fields(parts[1]),
		Author:       Signature{Name: parts[2], Email: parts[3], When: authorWhen},
		Committer:    Signature{Name: parts[5], Email: parts[6], When: committerWhen},
		Message:      message,
	}, nil
}

// sliceStream replays a fixed list of commits.
type sliceStream struct {
	commits []*Commit
	pos     int
}

func (s *sliceStream) Next() (*Commit, error) {
	if s.pos >= len(s.commits) {
		return nil, io.EOF
	}
	c := s.commits[s.pos]
	s.pos++
	return c, nil
}

func (s *sliceStream) Close() error {
	s.pos = len(s.commits)
	return nil
}
