// Package provider runs the poll loop that keeps a render sink in sync with a
// repository and its goal state.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thiagokokada/gitviz-go/internal/git"
	"github.com/thiagokokada/gitviz-go/internal/graph"
)

const DefaultInterval = 2 * time.Second

// Sink is the display surface. Payloads are multiplexed over one channel: a
// graph, a completion boolean, or a user notice.
type Sink interface {
	RenderGraph(g graph.Graph)
	SetComplete(complete bool)
	Notify(message string)
}

// GraphReader builds the graph of the live repository.
type GraphReader interface {
	ReadGraph(ctx context.Context, path string) (graph.Graph, error)
}

// GoalReader builds the goal graph of a workspace. Recover puts the live
// metadata directory back if an earlier goal read left it displaced.
type GoalReader interface {
	Available(root string) bool
	Recover(root string) (bool, error)
	ReadGoal(ctx context.Context, root string) (*graph.Graph, error)
}

type Options struct {
	// Workspaces are the opened workspace roots; exactly one is required.
	Workspaces []string
	Live       GraphReader
	// Goal is optional. Without it completion is never reported.
	Goal     GoalReader
	Evaluate graph.Evaluator
	Interval time.Duration
	// Watch enables filesystem nudges between timer ticks.
	Watch bool
}

type noticeSlot int

const (
	slotLive noticeSlot = iota
	slotGoal
)

// Provider owns the previously rendered graph and the goal graph. All state is
// guarded by mu; a poll only touches it after its reads have finished.
type Provider struct {
	opts Options

	inFlight atomic.Bool

	mu           sync.Mutex
	sink         Sink
	prev         *graph.Graph
	goal         *graph.Graph
	complete     bool
	needGraph    bool
	needComplete bool
	notices      [2]string
	lastPoll     time.Time
	disposed     bool
	cancel       context.CancelFunc
	done         chan struct{}
}

func New(opts Options) *Provider {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Evaluate == nil {
		opts.Evaluate = graph.IsComplete
	}
	if opts.Live == nil {
		opts.Live = git.NewReader(nil)
	}
	return &Provider{opts: opts}
}

// Attach sets the display surface. The next successful poll re-sends the
// current graph and completion status, even if nothing changed.
func (p *Provider) Attach(sink Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	p.sink = sink
	p.needGraph = true
	p.needComplete = true
	p.notices = [2]string{}
}

// Tick runs one poll. Expected conditions (no workspace, not a repository,
// goal unavailable) are reported to the sink once and return nil; other read
// failures are returned. A tick started while another is running is skipped.
func (p *Provider) Tick(ctx context.Context) error {
	if !p.inFlight.CompareAndSwap(false, true) {
		slog.Debug("poll skipped, previous poll still running")
		return nil
	}
	defer p.inFlight.Store(false)
	if p.isDisposed() {
		return nil
	}

	root, err := Workspace(p.opts.Workspaces)
	if err != nil {
		var wsErr *WorkspaceError
		if errors.As(err, &wsErr) {
			p.notify(slotLive, wsErr.Notice())
			return nil
		}
		return err
	}
	if p.opts.Goal != nil {
		if _, err := p.opts.Goal.Recover(root); err != nil {
			slog.Error("goal swap recovery failed", slog.String("root", root), slog.Any("error", err))
			p.notify(slotGoal, "Goal swap could not be undone: "+err.Error())
			return nil
		}
	}
	if !hasGitDir(root) {
		p.notify(slotLive, noticeNotAGitRepository)
		return nil
	}

	cur, err := p.opts.Live.ReadGraph(ctx, root)
	if err != nil {
		if errors.Is(err, git.ErrNotAGitRepository) {
			p.notify(slotLive, noticeNotAGitRepository)
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("read live graph: %w", err)
	}
	p.publishGraph(cur)

	goal := p.readGoal(ctx, root)
	p.publishCompletion(p.opts.Evaluate(cur, goal), goal)
	return nil
}

func (p *Provider) publishGraph(cur graph.Graph) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	p.lastPoll = time.Now()
	p.notices[slotLive] = ""

	changed := graph.HasChanged(p.prev, cur)
	if changed {
		graph.Reconcile(p.prev, &cur)
		p.prev = &cur
		slog.Debug("graph changed", slog.Int("nodes", len(cur.Nodes)), slog.Int("links", len(cur.Links)))
	}
	if p.sink == nil || !(changed || p.needGraph) {
		return
	}
	p.needGraph = false
	p.sink.RenderGraph(p.prev.Clone())
}

func (p *Provider) readGoal(ctx context.Context, root string) *graph.Graph {
	if p.opts.Goal == nil || !p.opts.Goal.Available(root) {
		return nil
	}
	goal, err := p.opts.Goal.ReadGoal(ctx, root)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("goal read failed", slog.String("root", root), slog.Any("error", err))
			p.notify(slotGoal, "Goal state unavailable: "+err.Error())
		}
		return nil
	}
	p.mu.Lock()
	p.notices[slotGoal] = ""
	p.mu.Unlock()
	return goal
}

func (p *Provider) publishCompletion(complete bool, goal *graph.Graph) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	p.goal = goal
	toggled := complete != p.complete
	p.complete = complete
	if toggled {
		slog.Info("completion changed", slog.Bool("complete", complete))
	}
	if p.sink == nil || !(toggled || p.needComplete) {
		return
	}
	p.needComplete = false
	p.sink.SetComplete(complete)
}

// notify sends message unless it is the one last sent for slot.
func (p *Provider) notify(slot noticeSlot, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed || p.notices[slot] == message {
		return
	}
	p.notices[slot] = message
	slog.Info("notice", slog.String("message", message))
	if p.sink != nil {
		p.sink.Notify(message)
	}
}

// UpdateLayout records renderer positions on the current graph so they carry
// over to the next accepted update.
func (p *Provider) UpdateLayout(updates []graph.LayoutUpdate) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prev == nil {
		return 0
	}
	return graph.ApplyLayout(p.prev, updates)
}

// Snapshot returns a copy of the current graph and completion status. ok is
// false until the first graph was read.
func (p *Provider) Snapshot() (g graph.Graph, complete bool, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prev == nil {
		return graph.Graph{}, p.complete, false
	}
	return p.prev.Clone(), p.complete, true
}

type Status struct {
	Complete bool      `json:"complete"`
	HasGoal  bool      `json:"has_goal"`
	Nodes    int       `json:"nodes"`
	Notices  []string  `json:"notices,omitempty"`
	LastPoll time.Time `json:"last_poll"`
}

func (p *Provider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{
		Complete: p.complete,
		HasGoal:  p.goal != nil,
		LastPoll: p.lastPoll,
	}
	if p.prev != nil {
		st.Nodes = len(p.prev.Nodes)
	}
	for _, n := range p.notices {
		if n != "" {
			st.Notices = append(st.Notices, n)
		}
	}
	return st
}

// Run polls every interval, and on filesystem nudges when enabled, until ctx
// is done or the provider is disposed.
func (p *Provider) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil
	}
	if p.done != nil {
		p.mu.Unlock()
		return errors.New("provider already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done
	p.mu.Unlock()
	defer close(done)
	defer cancel()

	nudges := make(chan struct{}, 1)
	if w := p.startWatch(nudges); w != nil {
		defer w.Close()
	}

	slog.Info("poll loop started", slog.Duration("interval", p.opts.Interval))
	p.poll(ctx)
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("poll loop stopped")
			return nil
		case <-ticker.C:
			p.poll(ctx)
		case <-nudges:
			p.poll(ctx)
		}
	}
}

func (p *Provider) poll(ctx context.Context) {
	if err := p.Tick(ctx); err != nil {
		slog.Error("poll failed", slog.Any("error", err))
	}
}

// startWatch returns nil when nudges are disabled or cannot be set up. Goal
// mode disables them since the goal swap renames the watched directory.
func (p *Provider) startWatch(nudges chan<- struct{}) *watcher {
	if !p.opts.Watch {
		return nil
	}
	root, err := Workspace(p.opts.Workspaces)
	if err != nil {
		return nil
	}
	if p.opts.Goal != nil && p.opts.Goal.Available(root) {
		slog.Debug("filesystem nudges disabled in goal mode")
		return nil
	}
	w, err := startWatch(root, func() {
		select {
		case nudges <- struct{}{}:
		default:
		}
	})
	if err != nil {
		slog.Error("filesystem nudges disabled", slog.Any("error", err))
		return nil
	}
	return w
}

func (p *Provider) isDisposed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disposed
}

// Dispose stops the poll loop, waits for it to exit and releases the sink.
// Results of a poll still running are discarded.
func (p *Provider) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	p.sink = nil
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
