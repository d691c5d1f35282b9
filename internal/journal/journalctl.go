package journal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// maxLineBytes bounds a single journalctl JSON line
const maxLineBytes = 4 * 1024 * 1024

// JournalctlOptions selects which journal journalctl reads
type JournalctlOptions struct {
	Binary    string   // journalctl executable (default "journalctl")
	Directory string   // --directory: read journal files from this directory
	Files     []string // --file: read these journal files
	Merge     bool     // --merge: interleave all available journals
	User      bool     // --user: read the user journal

	// OnStderrLine receives journalctl diagnostics (trimmed)
	OnStderrLine func(line string)
}

// Journalctl opens readers backed by `journalctl --output=json --reverse`
type Journalctl struct {
	opts JournalctlOptions
}

// NewJournalctl creates a journalctl opener
func NewJournalctl(opts JournalctlOptions) *Journalctl {
	if opts.Binary == "" {
		opts.Binary = "journalctl"
	}
	return &Journalctl{opts: opts}
}

// Open resolves the journalctl binary. The process starts on the first seek.
func (j *Journalctl) Open(ctx context.Context) (Reader, error) {
	path, err := exec.LookPath(j.opts.Binary)
	if err != nil {
		return nil, fmt.Errorf("journalctl not available: %w", err)
	}
	return &journalctlReader{ctx: ctx, path: path, opts: j.opts}, nil
}

// Args returns the journalctl arguments for a reverse read starting at
// cursor (inclusive), or at the tail when cursor is empty.
func (j *Journalctl) Args(cursor string) []string {
	return buildArgs(j.opts, cursor)
}

func buildArgs(opts JournalctlOptions, cursor string) []string {
	args := []string{"--output=json", "--reverse", "--no-pager", "--quiet", "--all"}
	if opts.Directory != "" {
		args = append(args, "--directory="+opts.Directory)
	}
	for _, f := range opts.Files {
		args = append(args, "--file="+f)
	}
	if opts.Merge {
		args = append(args, "--merge")
	}
	if opts.User {
		args = append(args, "--user")
	}
	if cursor != "" {
		args = append(args, "--cursor="+cursor)
	}
	return args
}

type journalctlReader struct {
	ctx  context.Context
	path string
	opts JournalctlOptions

	cmd        *exec.Cmd
	scanner    *bufio.Scanner
	stderrDone chan struct{}
	lastStderr string
	waited     bool
	waitErr    error

	// pending holds the record read ahead by SeekTail
	pending Record
}

// SeekTail starts journalctl at the newest entry and reads it ahead, so a
// journalctl that fails at startup is reported here rather than on the
// first Previous. An empty journal is not an error.
func (r *journalctlReader) SeekTail() error {
	if err := r.start(""); err != nil {
		return err
	}
	rec, err := r.Previous()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	r.pending = rec
	return nil
}

// SeekCursor starts journalctl at the cursor (inclusive) and consumes the
// cursor's own record, verifying that it really is the named record.
// journalctl silently seeks to the nearest entry for stale cursors.
func (r *journalctlReader) SeekCursor(cursor string) error {
	if err := r.start(cursor); err != nil {
		return err
	}
	rec, err := r.Previous()
	if errors.Is(err, io.EOF) {
		return ErrCursorNotFound
	}
	if err != nil {
		return err
	}
	if rec.UniqueID() != cursor {
		return ErrCursorNotFound
	}
	return nil
}

func (r *journalctlReader) start(cursor string) error {
	if r.cmd != nil {
		return errors.New("reader already positioned")
	}

	cmd := exec.CommandContext(r.ctx, r.path, buildArgs(r.opts, cursor)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start journalctl: %w", err)
	}

	// Drain stderr so journalctl never blocks on it; keep the last line for errors.
	r.stderrDone = make(chan struct{})
	go func() {
		defer close(r.stderrDone)
		sc := bufio.NewScanner(stderr)
		sc.Buffer(make([]byte, 0, 4*1024), 64*1024)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			r.lastStderr = line
			if r.opts.OnStderrLine != nil {
				r.opts.OnStderrLine(line)
			}
		}
	}()

	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	r.cmd = cmd
	r.scanner = sc
	return nil
}

func (r *journalctlReader) Previous() (Record, error) {
	if r.scanner == nil {
		return nil, errors.New("reader not positioned")
	}
	if rec := r.pending; rec != nil {
		r.pending = nil
		return rec, nil
	}

	for r.scanner.Scan() {
		// The scanner reuses its buffer; records must own their bytes.
		line := append([]byte(nil), r.scanner.Bytes()...)
		rec, ok := ParseRecord(line)
		if !ok {
			continue
		}
		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			err = fmt.Errorf("journalctl output line too long (>%d bytes): %w", maxLineBytes, err)
		}
		r.kill()
		_ = r.wait()
		return nil, err
	}

	if err := r.wait(); err != nil {
		if r.lastStderr != "" {
			return nil, fmt.Errorf("journalctl failed: %w: %s", err, r.lastStderr)
		}
		return nil, fmt.Errorf("journalctl failed: %w", err)
	}
	return nil, io.EOF
}

// Close stops journalctl if it is still producing output and reaps it
func (r *journalctlReader) Close() error {
	if r.cmd == nil || r.waited {
		return nil
	}
	r.kill()
	_ = r.wait()
	return nil
}

func (r *journalctlReader) kill() {
	if r.cmd != nil && r.cmd.Process != nil && !r.waited {
		_ = r.cmd.Process.Kill()
	}
}

// wait reaps the process once stderr has been fully drained
func (r *journalctlReader) wait() error {
	if r.waited {
		return r.waitErr
	}
	<-r.stderrDone
	r.waitErr = r.cmd.Wait()
	r.waited = true
	return r.waitErr
}
